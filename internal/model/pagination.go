package model

// Pagination represents a pagination display parameters
type Pagination struct {
	Number int64
	Active bool
	Dots   bool
}
