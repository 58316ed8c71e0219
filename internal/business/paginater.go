package business

import (
	"github.com/Agurato/cinefin/internal/model"
)

// Paginater splits a list of items into numbered pages
type Paginater[T any] struct {
	itemsPerPage int64
}

// NewPaginater instantiates a new Paginater
func NewPaginater[T any](itemsPerPage int64) *Paginater[T] {
	return &Paginater[T]{
		itemsPerPage: max(1, itemsPerPage),
	}
}

// PageCount returns the number of pages needed for count items, at least 1
func (p *Paginater[T]) PageCount(count int) int64 {
	return max(1, (int64(count)+p.itemsPerPage-1)/p.itemsPerPage)
}

// GetPagination returns the items of the current page, and the links to display:
// first page, current page and its neighbours, last page, with dots for the gaps.
// The current page is clamped to the existing pages.
func (p *Paginater[T]) GetPagination(currentPage int64, items []T) ([]T, []model.Pagination) {
	pageMax := p.PageCount(len(items))
	currentPage = min(max(currentPage, 1), pageMax)

	pages := []model.Pagination{{Number: 1, Active: currentPage == 1}}
	if currentPage > 3 {
		pages = append(pages, model.Pagination{Dots: true})
	}
	for i := currentPage - 1; i <= currentPage+1; i++ {
		if i <= 1 || i >= pageMax {
			continue
		}
		pages = append(pages, model.Pagination{Number: i, Active: i == currentPage})
	}
	if currentPage < pageMax-2 {
		pages = append(pages, model.Pagination{Dots: true})
	}
	if pageMax > 1 {
		pages = append(pages, model.Pagination{Number: pageMax, Active: currentPage == pageMax})
	}

	start := min((currentPage-1)*p.itemsPerPage, int64(len(items)))
	end := min(start+p.itemsPerPage, int64(len(items)))
	return items[start:end], pages
}
