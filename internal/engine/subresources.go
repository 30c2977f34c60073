package engine

import (
	"context"
	"database/sql"
	"strings"

	"bizdesk/internal/domain"
	"bizdesk/internal/events"
)

func validateBlockage(b domain.Blockage) error {
	fe := fieldErrors{}
	if strings.TrimSpace(b.Title) == "" {
		fe.add("title", "The title field is required.")
	}
	if !b.Priority.Valid() {
		fe.add("priority", "The selected priority is invalid.")
	}
	if !b.Status.Valid() {
		fe.add("status", "The selected status is invalid.")
	}
	return fe.err()
}

func applyBlockageInput(b *domain.Blockage, in domain.BlockageInput) {
	b.Title = valueOr(in.Title, b.Title)
	b.Description = valueOr(in.Description, b.Description)
	b.Priority = valueOr(in.Priority, b.Priority)
	b.Status = valueOr(in.Status, b.Status)
	b.BlocksProgress = valueOr(in.BlocksProgress, b.BlocksProgress)
	b.ExpectedResolutionDate = valueOr(in.ExpectedResolutionDate, b.ExpectedResolutionDate)
	if in.AssignedTo != nil {
		b.AssignedTo = idOrNil(in.AssignedTo)
	}
}

// inProject runs fn in a transaction after checking the project exists.
func (e Engine) inProject(ctx context.Context, projectID int64, fn func(tx *sql.Tx) error) error {
	return e.Repo.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := e.Repo.GetProject(ctx, tx, projectID); err != nil {
			return wrapNotFound("project", projectID, err)
		}
		return fn(tx)
	})
}

func (e Engine) ListBlockages(ctx context.Context, projectID int64) ([]domain.Blockage, error) {
	if _, err := e.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return e.Repo.ListBlockages(ctx, projectID)
}

func (e Engine) AddBlockage(ctx context.Context, projectID int64, in domain.BlockageInput, actorID int64) (domain.Blockage, error) {
	b := domain.Blockage{ProjectID: projectID, Priority: domain.BlockageMedium, Status: domain.BlockageActive}
	applyBlockageInput(&b, in)
	if err := validateBlockage(b); err != nil {
		return domain.Blockage{}, err
	}
	b.CreatedAt = e.stamp()
	if b.Status == domain.BlockageResolved {
		b.ResolvedAt = b.CreatedAt
	}
	err := e.inProject(ctx, projectID, func(tx *sql.Tx) error {
		id, err := e.Repo.InsertBlockage(ctx, tx, b)
		if err != nil {
			return err
		}
		b.ID = id
		return e.Events.Append(ctx, tx, events.BlockageAdded, projectID, actorID, events.EventPayload{"blockage_id": id, "title": b.Title, "priority": b.Priority})
	})
	return b, err
}

// EditBlockage updates a blockage. A resolved blockage cannot be reopened.
func (e Engine) EditBlockage(ctx context.Context, projectID, id int64, in domain.BlockageInput, actorID int64) (domain.Blockage, error) {
	var updated domain.Blockage
	err := e.inProject(ctx, projectID, func(tx *sql.Tx) error {
		b, err := e.Repo.GetBlockage(ctx, tx, projectID, id)
		if err != nil {
			return wrapNotFound("blockage", id, err)
		}
		wasResolved := b.Status == domain.BlockageResolved
		applyBlockageInput(&b, in)
		if err := validateBlockage(b); err != nil {
			return err
		}
		if wasResolved && b.Status != domain.BlockageResolved {
			return ConflictError{Reason: "a resolved blockage cannot be reopened"}
		}
		if !wasResolved && b.Status == domain.BlockageResolved {
			b.ResolvedAt = e.stamp()
		}
		if err := e.Repo.UpdateBlockage(ctx, tx, b); err != nil {
			return err
		}
		updated = b
		return e.Events.Append(ctx, tx, events.BlockageUpdated, projectID, actorID, events.EventPayload{"blockage_id": id, "status": b.Status})
	})
	return updated, err
}

func (e Engine) ResolveBlockage(ctx context.Context, projectID, id int64, actorID int64) (domain.Blockage, error) {
	var resolved domain.Blockage
	err := e.inProject(ctx, projectID, func(tx *sql.Tx) error {
		b, err := e.Repo.GetBlockage(ctx, tx, projectID, id)
		if err != nil {
			return wrapNotFound("blockage", id, err)
		}
		if b.Status == domain.BlockageResolved {
			return ConflictError{Reason: "blockage is already resolved"}
		}
		b.Status = domain.BlockageResolved
		b.ResolvedAt = e.stamp()
		if err := e.Repo.UpdateBlockage(ctx, tx, b); err != nil {
			return err
		}
		resolved = b
		return e.Events.Append(ctx, tx, events.BlockageResolved, projectID, actorID, events.EventPayload{"blockage_id": id, "title": b.Title})
	})
	return resolved, err
}

func (e Engine) DeleteBlockage(ctx context.Context, projectID, id int64, actorID int64) error {
	return e.inProject(ctx, projectID, func(tx *sql.Tx) error {
		if err := e.Repo.DeleteBlockage(ctx, tx, projectID, id); err != nil {
			return wrapNotFound("blockage", id, err)
		}
		return e.Events.Append(ctx, tx, events.BlockageRemoved, projectID, actorID, events.EventPayload{"blockage_id": id})
	})
}

func validateContact(c domain.Contact) error {
	fe := fieldErrors{}
	if strings.TrimSpace(c.Name) == "" {
		fe.add("name", "The name field is required.")
	}
	if c.Email != "" && !strings.Contains(c.Email, "@") {
		fe.add("email", "The email must be a valid email address.")
	}
	return fe.err()
}

func applyContactInput(c *domain.Contact, in domain.ContactInput) {
	c.Name = valueOr(in.Name, c.Name)
	c.Title = valueOr(in.Title, c.Title)
	c.Email = valueOr(in.Email, c.Email)
	c.Phone = valueOr(in.Phone, c.Phone)
	c.Notes = valueOr(in.Notes, c.Notes)
	c.IsPrimary = valueOr(in.IsPrimary, c.IsPrimary)
	c.IsExternal = valueOr(in.IsExternal, c.IsExternal)
}

func (e Engine) ListContacts(ctx context.Context, projectID int64) ([]domain.Contact, error) {
	if _, err := e.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return e.Repo.ListContacts(ctx, projectID)
}

// AddContact inserts a contact. A new primary contact demotes the previous one.
func (e Engine) AddContact(ctx context.Context, projectID int64, in domain.ContactInput, actorID int64) (domain.Contact, error) {
	c := domain.Contact{ProjectID: projectID}
	applyContactInput(&c, in)
	if err := validateContact(c); err != nil {
		return domain.Contact{}, err
	}
	err := e.inProject(ctx, projectID, func(tx *sql.Tx) error {
		if c.IsPrimary {
			if err := e.Repo.ClearPrimaryContact(ctx, tx, projectID, 0); err != nil {
				return err
			}
		}
		id, err := e.Repo.InsertContact(ctx, tx, c)
		if err != nil {
			return err
		}
		c.ID = id
		return e.Events.Append(ctx, tx, events.ContactAdded, projectID, actorID, events.EventPayload{"contact_id": id, "name": c.Name, "primary": c.IsPrimary})
	})
	return c, err
}

func (e Engine) EditContact(ctx context.Context, projectID, id int64, in domain.ContactInput, actorID int64) (domain.Contact, error) {
	var updated domain.Contact
	err := e.inProject(ctx, projectID, func(tx *sql.Tx) error {
		c, err := e.Repo.GetContact(ctx, tx, projectID, id)
		if err != nil {
			return wrapNotFound("contact", id, err)
		}
		applyContactInput(&c, in)
		if err := validateContact(c); err != nil {
			return err
		}
		if c.IsPrimary {
			if err := e.Repo.ClearPrimaryContact(ctx, tx, projectID, id); err != nil {
				return err
			}
		}
		if err := e.Repo.UpdateContact(ctx, tx, c); err != nil {
			return err
		}
		updated = c
		return e.Events.Append(ctx, tx, events.ContactUpdated, projectID, actorID, events.EventPayload{"contact_id": id})
	})
	return updated, err
}

// SetPrimaryContact makes id the only primary contact of the project.
func (e Engine) SetPrimaryContact(ctx context.Context, projectID, id int64, actorID int64) (domain.Contact, error) {
	var primary domain.Contact
	err := e.inProject(ctx, projectID, func(tx *sql.Tx) error {
		c, err := e.Repo.GetContact(ctx, tx, projectID, id)
		if err != nil {
			return wrapNotFound("contact", id, err)
		}
		if err := e.Repo.ClearPrimaryContact(ctx, tx, projectID, id); err != nil {
			return err
		}
		c.IsPrimary = true
		if err := e.Repo.UpdateContact(ctx, tx, c); err != nil {
			return err
		}
		primary = c
		return e.Events.Append(ctx, tx, events.ContactPrimary, projectID, actorID, events.EventPayload{"contact_id": id, "name": c.Name})
	})
	return primary, err
}

func (e Engine) DeleteContact(ctx context.Context, projectID, id int64, actorID int64) error {
	return e.inProject(ctx, projectID, func(tx *sql.Tx) error {
		if err := e.Repo.DeleteContact(ctx, tx, projectID, id); err != nil {
			return wrapNotFound("contact", id, err)
		}
		return e.Events.Append(ctx, tx, events.ContactRemoved, projectID, actorID, events.EventPayload{"contact_id": id})
	})
}
