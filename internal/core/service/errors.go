package service

import "errors"

var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrAlreadyExists       = errors.New("already exists")
	ErrNotFound            = errors.New("not found")
	ErrManagerNotFound     = errors.New("warehouse manager does not exist")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrInsufficientPayment = errors.New("insufficient wei")
	ErrOrderNotFound       = errors.New("order does not exist or is not open")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrNotInitialized      = errors.New("ledger not initialized")
	ErrAlreadyInitialized  = errors.New("ledger already initialized")
	ErrDuplicateRequest    = errors.New("duplicate request")
)
