package service

import (
	"context"
	"strings"

	"tablepos/internal/dto"
	"tablepos/internal/model"
	"tablepos/internal/repository"

	"github.com/google/uuid"
)

type TableService interface {
	Create(ctx context.Context, sess Session, req dto.CreateTableRequest) (*dto.TableResponse, error)
	List(ctx context.Context, sess Session) ([]dto.TableResponse, error)
	Update(ctx context.Context, sess Session, id uuid.UUID, req dto.UpdateTableRequest) (*dto.TableResponse, error)
	Delete(ctx context.Context, sess Session, id uuid.UUID) error
}

type tableService struct {
	repo  repository.TableRepository
	bills repository.BillRepository
}

func NewTableService(repo repository.TableRepository, bills repository.BillRepository) TableService {
	return &tableService{repo: repo, bills: bills}
}

func mapTable(t *model.Table, occupied bool) dto.TableResponse {
	return dto.TableResponse{
		ID:       t.ID.String(),
		Name:     t.Name,
		Capacity: t.Capacity,
		Active:   t.Active,
		Occupied: occupied,
	}
}

func (s *tableService) nameTaken(ctx context.Context, sess Session, name string, except uuid.UUID) (bool, error) {
	list, err := s.repo.List(ctx, sess.RestaurantID)
	if err != nil {
		return false, err
	}
	for _, t := range list {
		if t.ID != except && strings.EqualFold(t.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

func (s *tableService) Create(ctx context.Context, sess Session, req dto.CreateTableRequest) (*dto.TableResponse, error) {
	name := strings.TrimSpace(req.Name)
	taken, err := s.nameTaken(ctx, sess, name, uuid.Nil)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrTableExists
	}
	capacity := req.Capacity
	if capacity == 0 {
		capacity = 4
	}
	t := &model.Table{RestaurantID: sess.RestaurantID, Name: name, Capacity: capacity, Active: true}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	resp := mapTable(t, false)
	return &resp, nil
}

// List returns active tables with their occupancy.
func (s *tableService) List(ctx context.Context, sess Session) ([]dto.TableResponse, error) {
	tables, err := s.repo.List(ctx, sess.RestaurantID)
	if err != nil {
		return nil, err
	}
	open, err := s.bills.ListOpen(ctx, sess.RestaurantID)
	if err != nil {
		return nil, err
	}
	occupied := make(map[uuid.UUID]bool, len(open))
	for _, b := range open {
		items, _ := b.CartItems()
		if len(items) > 0 {
			occupied[b.TableID] = true
		}
	}
	resp := make([]dto.TableResponse, len(tables))
	for i := range tables {
		resp[i] = mapTable(&tables[i], occupied[tables[i].ID])
	}
	return resp, nil
}

func (s *tableService) Update(ctx context.Context, sess Session, id uuid.UUID, req dto.UpdateTableRequest) (*dto.TableResponse, error) {
	t, err := s.repo.FindByID(ctx, sess.RestaurantID, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrTableNotFound
		}
		return nil, err
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		taken, err := s.nameTaken(ctx, sess, name, t.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrTableExists
		}
		t.Name = name
	}
	if req.Capacity != nil {
		t.Capacity = *req.Capacity
	}
	if req.Active != nil {
		t.Active = *req.Active
	}
	if err := s.repo.Update(ctx, t); err != nil {
		return nil, err
	}
	resp := mapTable(t, false)
	return &resp, nil
}

// Delete refuses tables that still carry an open bill.
func (s *tableService) Delete(ctx context.Context, sess Session, id uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, sess.RestaurantID, id); err != nil {
		if isNotFound(err) {
			return ErrTableNotFound
		}
		return err
	}
	b, err := s.bills.FindOpenByTable(ctx, sess.RestaurantID, id)
	if err != nil && !isNotFound(err) {
		return err
	}
	if b != nil {
		if items, _ := b.CartItems(); len(items) > 0 {
			return ErrTableOccupied
		}
	}
	return s.repo.SoftDelete(ctx, sess.RestaurantID, id)
}
