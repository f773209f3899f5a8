package service

import (
	"digimart/internal/domain"
	"fmt"
)

func requireAdmin(actor domain.Actor) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("%w: admin role required", domain.ErrUnauthorized)
	}
	return nil
}
