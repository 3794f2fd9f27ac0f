package service

import (
	"context"
	"strings"

	"salonledger/internal/domain"
	"salonledger/internal/store"
)

func (s *Service) ListSuppliers(ctx context.Context, sess domain.Session, activeOnly bool) ([]domain.Supplier, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	var filters store.Filters
	if activeOnly {
		filters = store.Filters{"active": true}
	}
	records, err := s.docs.GetCollection(ctx, store.CollectionSuppliers, sess.OwnerID, filters)
	if err != nil {
		return nil, err
	}
	return decodeAll[domain.Supplier](records)
}

func (s *Service) GetSupplier(ctx context.Context, sess domain.Session, id string) (domain.Supplier, error) {
	if err := requireSession(sess); err != nil {
		return domain.Supplier{}, err
	}
	var supplier domain.Supplier
	if err := s.getOwned(ctx, sess, store.CollectionSuppliers, id, &supplier); err != nil {
		return domain.Supplier{}, err
	}
	return supplier, nil
}

func (s *Service) CreateSupplier(ctx context.Context, sess domain.Session, req domain.SupplierRequest) (domain.Supplier, error) {
	if err := requireSession(sess); err != nil {
		return domain.Supplier{}, err
	}
	req = trimSupplier(req)
	if err := validateStruct(req); err != nil {
		return domain.Supplier{}, err
	}

	supplier := domain.Supplier{
		Name:          req.Name,
		ContactPerson: req.ContactPerson,
		Email:         req.Email,
		Phone:         req.Phone,
		Mobile:        req.Mobile,
		Address:       req.Address,
		Notes:         req.Notes,
		Active:        true,
	}
	if req.Active != nil {
		supplier.Active = *req.Active
	}

	id, err := s.docs.AddDocument(ctx, store.CollectionSuppliers, sess.OwnerID, supplier)
	if err != nil {
		return domain.Supplier{}, err
	}
	return s.GetSupplier(ctx, sess, id)
}

// UpdateSupplier replaces the supplier's editable fields.
func (s *Service) UpdateSupplier(ctx context.Context, sess domain.Session, id string, req domain.SupplierRequest) (domain.Supplier, error) {
	if err := requireSession(sess); err != nil {
		return domain.Supplier{}, err
	}
	req = trimSupplier(req)
	if err := validateStruct(req); err != nil {
		return domain.Supplier{}, err
	}
	existing, err := s.GetSupplier(ctx, sess, id)
	if err != nil {
		return domain.Supplier{}, err
	}

	active := existing.Active
	if req.Active != nil {
		active = *req.Active
	}
	err = s.docs.UpdateDocument(ctx, store.CollectionSuppliers, id, map[string]any{
		"name":           req.Name,
		"contact_person": req.ContactPerson,
		"email":          req.Email,
		"phone":          req.Phone,
		"mobile":         req.Mobile,
		"address":        req.Address,
		"notes":          req.Notes,
		"active":         active,
	})
	if err != nil {
		return domain.Supplier{}, err
	}
	return s.GetSupplier(ctx, sess, id)
}

func (s *Service) DeleteSupplier(ctx context.Context, sess domain.Session, id string) error {
	if _, err := s.GetSupplier(ctx, sess, id); err != nil {
		return err
	}
	return s.docs.DeleteDocument(ctx, store.CollectionSuppliers, id)
}

func trimSupplier(req domain.SupplierRequest) domain.SupplierRequest {
	req.Name = strings.TrimSpace(req.Name)
	req.ContactPerson = strings.TrimSpace(req.ContactPerson)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Mobile = strings.TrimSpace(req.Mobile)
	req.Address = strings.TrimSpace(req.Address)
	req.Notes = strings.TrimSpace(req.Notes)
	return req
}
