package interfaces

import "nifty-meanrev/internal/matrix"

// PriceStore persists the closing-price matrix. Load returns a nil matrix
// when nothing has been stored yet.
type PriceStore interface {
	Load() (*matrix.Matrix, error)
	Save(m *matrix.Matrix) error
}
