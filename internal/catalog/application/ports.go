package application

import "github.com/dmehra2102/shopflow/internal/catalog/domain"

type Catalog interface {
	Products() []domain.Product
	Product(id int) (domain.Product, bool)
}
