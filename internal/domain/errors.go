package domain

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrMissingColumn = errors.New("required column missing")
	ErrMissingLabel  = errors.New("row label missing")
	ErrUnknownModel  = errors.New("unknown model family")
	ErrEmptyDataset  = errors.New("dataset is empty")
	ErrNoTrials      = errors.New("no search trials completed")
	ErrLockHeld      = errors.New("lock already held")
)
