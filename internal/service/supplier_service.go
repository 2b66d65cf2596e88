package service

import (
	"context"
	"strings"

	"github.com/oliklab/mledger-sub000/internal/dto"
	"github.com/oliklab/mledger-sub000/internal/model"
	"github.com/oliklab/mledger-sub000/internal/repository"

	"github.com/google/uuid"
)

type SupplierService interface {
	Create(ctx context.Context, userID uuid.UUID, req dto.SupplierRequest) (*dto.SupplierResponse, error)
	GetByID(ctx context.Context, userID, id uuid.UUID) (*dto.SupplierResponse, error)
	List(ctx context.Context, userID uuid.UUID) ([]dto.SupplierResponse, error)
	Update(ctx context.Context, userID, id uuid.UUID, req dto.SupplierRequest) (*dto.SupplierResponse, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

type supplierService struct {
	repo repository.SupplierRepository
}

func NewSupplierService(repo repository.SupplierRepository) SupplierService {
	return &supplierService{repo: repo}
}

func (s *supplierService) Create(ctx context.Context, userID uuid.UUID, req dto.SupplierRequest) (*dto.SupplierResponse, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, invalid("supplier name is required")
	}
	sup := &model.Supplier{
		UserID:      userID,
		Name:        req.Name,
		ContactName: req.ContactName,
		Phone:       req.Phone,
		Email:       req.Email,
		Address:     req.Address,
		Notes:       req.Notes,
		Active:      true,
	}
	if err := s.repo.Create(ctx, sup); err != nil {
		return nil, err
	}
	return supplierToResponse(sup), nil
}

func (s *supplierService) GetByID(ctx context.Context, userID, id uuid.UUID) (*dto.SupplierResponse, error) {
	sup, err := s.repo.FindByID(ctx, userID, id)
	if err != nil {
		return nil, lookupErr(err, "supplier")
	}
	return supplierToResponse(sup), nil
}

func (s *supplierService) List(ctx context.Context, userID uuid.UUID) ([]dto.SupplierResponse, error) {
	rows, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.SupplierResponse, 0, len(rows))
	for i := range rows {
		out = append(out, *supplierToResponse(&rows[i]))
	}
	return out, nil
}

func (s *supplierService) Update(ctx context.Context, userID, id uuid.UUID, req dto.SupplierRequest) (*dto.SupplierResponse, error) {
	sup, err := s.repo.FindByID(ctx, userID, id)
	if err != nil {
		return nil, lookupErr(err, "supplier")
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, invalid("supplier name is required")
	}
	sup.Name = req.Name
	sup.ContactName = req.ContactName
	sup.Phone = req.Phone
	sup.Email = req.Email
	sup.Address = req.Address
	sup.Notes = req.Notes
	if err := s.repo.Update(ctx, sup); err != nil {
		return nil, err
	}
	return supplierToResponse(sup), nil
}

// Delete deactivates the supplier. Journal entries keep their supplier_id
// and the copied supplier name.
func (s *supplierService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, userID, id); err != nil {
		return lookupErr(err, "supplier")
	}
	return s.repo.SoftDelete(ctx, userID, id)
}
