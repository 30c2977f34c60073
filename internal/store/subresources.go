package store

import (
	"context"
	"fmt"

	"bizdesk/internal/domain"
)

// Blockages returns the blockage cache of a project.
func (s *ProjectStore) Blockages(projectID int64) *Cache[domain.Blockage] {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.blockages[projectID]
	if !ok {
		c = NewCache[domain.Blockage]()
		s.blockages[projectID] = c
	}
	return c
}

// Contacts returns the contact cache of a project.
func (s *ProjectStore) Contacts(projectID int64) *Cache[domain.Contact] {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contacts[projectID]
	if !ok {
		c = NewCache[domain.Contact]()
		s.contacts[projectID] = c
	}
	return c
}

func fetchAll[T Entity](c *Cache[T], load func() ([]T, error)) ([]T, error) {
	ticket := c.BeginList()
	items, err := load()
	if err != nil {
		if staleErr := c.FailList(ticket, err); staleErr != nil {
			return nil, staleErr
		}
		return nil, err
	}
	page := domain.Page[T]{Items: items, Page: 1, PerPage: len(items), Total: len(items), LastPage: 1}
	if err := c.ApplyList(ticket, page); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *ProjectStore) FetchBlockages(ctx context.Context, projectID int64) ([]domain.Blockage, error) {
	return fetchAll(s.Blockages(projectID), func() ([]domain.Blockage, error) {
		return s.api.ListBlockages(ctx, projectID)
	})
}

func (s *ProjectStore) AddBlockage(ctx context.Context, projectID int64, in domain.BlockageInput) (domain.Blockage, error) {
	c := s.Blockages(projectID)
	var created domain.Blockage
	err := runOp(c, OpCreate, 0, func() error {
		b, err := s.api.CreateBlockage(ctx, projectID, in)
		if err != nil {
			return err
		}
		created = b
		c.Upsert(b)
		return nil
	})
	return created, err
}

func (s *ProjectStore) EditBlockage(ctx context.Context, projectID, id int64, in domain.BlockageInput) (domain.Blockage, error) {
	c := s.Blockages(projectID)
	var updated domain.Blockage
	err := runOp(c, OpUpdate, id, func() error {
		b, err := s.api.UpdateBlockage(ctx, projectID, id, in)
		if err != nil {
			return err
		}
		updated = b
		c.Upsert(b)
		return nil
	})
	return updated, err
}

// ResolveBlockage is one-way; a blockage cached as resolved is refused locally.
func (s *ProjectStore) ResolveBlockage(ctx context.Context, projectID, id int64) (domain.Blockage, error) {
	c := s.Blockages(projectID)
	var resolved domain.Blockage
	err := runOp(c, OpResolve, id, func() error {
		if cur, ok := c.Item(id); ok && cur.Status == domain.BlockageResolved {
			return fmt.Errorf("blockage %d: %w", id, ErrAlreadyResolved)
		}
		b, err := s.api.ResolveBlockage(ctx, projectID, id)
		if err != nil {
			return err
		}
		resolved = b
		c.Upsert(b)
		return nil
	})
	return resolved, err
}

func (s *ProjectStore) DeleteBlockage(ctx context.Context, projectID, id int64) error {
	c := s.Blockages(projectID)
	return runOp(c, OpDelete, id, func() error {
		if err := s.api.DeleteBlockage(ctx, projectID, id); err != nil {
			return err
		}
		c.Remove(id)
		return nil
	})
}

func (s *ProjectStore) FetchContacts(ctx context.Context, projectID int64) ([]domain.Contact, error) {
	return fetchAll(s.Contacts(projectID), func() ([]domain.Contact, error) {
		return s.api.ListContacts(ctx, projectID)
	})
}

func (s *ProjectStore) AddContact(ctx context.Context, projectID int64, in domain.ContactInput) (domain.Contact, error) {
	c := s.Contacts(projectID)
	var created domain.Contact
	err := runOp(c, OpCreate, 0, func() error {
		ct, err := s.api.CreateContact(ctx, projectID, in)
		if err != nil {
			return err
		}
		created = ct
		if ct.IsPrimary {
			demoteOthers(c, ct.ID)
		}
		c.Upsert(ct)
		return nil
	})
	return created, err
}

func (s *ProjectStore) EditContact(ctx context.Context, projectID, id int64, in domain.ContactInput) (domain.Contact, error) {
	c := s.Contacts(projectID)
	var updated domain.Contact
	err := runOp(c, OpUpdate, id, func() error {
		ct, err := s.api.UpdateContact(ctx, projectID, id, in)
		if err != nil {
			return err
		}
		updated = ct
		if ct.IsPrimary {
			demoteOthers(c, ct.ID)
		}
		c.Upsert(ct)
		return nil
	})
	return updated, err
}

// SetPrimaryContact asks the API to make id the only primary contact and
// mirrors that locally.
func (s *ProjectStore) SetPrimaryContact(ctx context.Context, projectID, id int64) (domain.Contact, error) {
	c := s.Contacts(projectID)
	var primary domain.Contact
	err := runOp(c, OpPrimary, id, func() error {
		ct, err := s.api.SetPrimaryContact(ctx, projectID, id)
		if err != nil {
			return err
		}
		primary = ct
		demoteOthers(c, id)
		c.Upsert(ct)
		return nil
	})
	return primary, err
}

func (s *ProjectStore) DeleteContact(ctx context.Context, projectID, id int64) error {
	c := s.Contacts(projectID)
	return runOp(c, OpDelete, id, func() error {
		if err := s.api.DeleteContact(ctx, projectID, id); err != nil {
			return err
		}
		c.Remove(id)
		return nil
	})
}

func demoteOthers(c *Cache[domain.Contact], keep int64) {
	for _, ct := range c.Items() {
		if ct.ID != keep && ct.IsPrimary {
			c.Patch(ct.ID, func(x *domain.Contact) { x.IsPrimary = false })
		}
	}
}
