package handler

import (
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"

	"github.com/rl1809/acme-warehouse/internal/core/service"
)

func httpStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, service.ErrAlreadyExists),
		errors.Is(err, service.ErrAlreadyInitialized),
		errors.Is(err, service.ErrDuplicateRequest):
		return http.StatusConflict
	case errors.Is(err, service.ErrNotFound),
		errors.Is(err, service.ErrManagerNotFound),
		errors.Is(err, service.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInsufficientStock),
		errors.Is(err, service.ErrInsufficientPayment):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotInitialized):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func grpcCode(err error) codes.Code {
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		return codes.PermissionDenied
	case errors.Is(err, service.ErrAlreadyExists),
		errors.Is(err, service.ErrAlreadyInitialized),
		errors.Is(err, service.ErrDuplicateRequest):
		return codes.AlreadyExists
	case errors.Is(err, service.ErrNotFound),
		errors.Is(err, service.ErrManagerNotFound),
		errors.Is(err, service.ErrOrderNotFound):
		return codes.NotFound
	case errors.Is(err, service.ErrInsufficientStock),
		errors.Is(err, service.ErrInsufficientPayment),
		errors.Is(err, service.ErrNotInitialized):
		return codes.FailedPrecondition
	case errors.Is(err, service.ErrInvalidArgument):
		return codes.InvalidArgument
	default:
		return codes.Internal
	}
}
