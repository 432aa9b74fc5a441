package backend

import (
	"errors"

	"github.com/tribly/growthqr-bff-go/internal/domain"
)

func asNotFound(err error) (*domain.ErrNotFound, bool) {
	var nf *domain.ErrNotFound
	if errors.As(err, &nf) {
		return nf, true
	}
	return nil, false
}

func asInvalidQR(err error) (*domain.ErrInvalidQR, bool) {
	var inv *domain.ErrInvalidQR
	if errors.As(err, &inv) {
		return inv, true
	}
	return nil, false
}
