package services

import (
	"fmt"
	"strings"

	"shopsite/internal/models"
	"shopsite/internal/repositories"
)

type ProductService interface {
	Create(req *models.ProductRequest) (*models.Product, error)
	Update(id int, req *models.ProductRequest) (*models.Product, error)
	Delete(id int) error
	GetByID(id int) (*models.Product, error)
	List(limit, offset int) ([]*models.Product, error)
	Search(query string, limit, offset int) ([]*models.Product, error)
}

type productService struct {
	repo repositories.ProductRepository
}

func NewProductService(repo repositories.ProductRepository) ProductService {
	return &productService{repo: repo}
}

func (s *productService) Create(req *models.ProductRequest) (*models.Product, error) {
	if req.Price.IsNegative() {
		return nil, fmt.Errorf("price must not be negative")
	}
	p := &models.Product{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Price:       req.Price,
		Quantity:    req.Quantity,
		ImagePath:   req.ImagePath,
	}
	if err := s.repo.Create(p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *productService) Update(id int, req *models.ProductRequest) (*models.Product, error) {
	p, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("product %d not found", id)
	}
	if req.Price.IsNegative() {
		return nil, fmt.Errorf("price must not be negative")
	}
	p.Title = strings.TrimSpace(req.Title)
	p.Description = req.Description
	p.Price = req.Price
	p.Quantity = req.Quantity
	p.ImagePath = req.ImagePath
	if err := s.repo.Update(p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *productService) Delete(id int) error {
	return s.repo.Delete(id)
}

func (s *productService) GetByID(id int) (*models.Product, error) {
	return s.repo.GetByID(id)
}

func (s *productService) List(limit, offset int) ([]*models.Product, error) {
	return s.repo.List(limit, offset)
}

func (s *productService) Search(query string, limit, offset int) ([]*models.Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.repo.List(limit, offset)
	}
	return s.repo.SearchByTitle(query, limit, offset)
}
