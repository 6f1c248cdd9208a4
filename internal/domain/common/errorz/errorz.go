package errorz

import "errors"

var (
	ErrNoSourceData     = errors.New("no outage data scraped")
	ErrTableNotFound    = errors.New("outage table not found")
	ErrUnexpectedStatus = errors.New("unexpected response status")
	ErrNoGeocodeMatch   = errors.New("no geocoding match")
	ErrRunInProgress    = errors.New("pipeline run already in progress")
	ErrInvalidLedgerKey = errors.New("invalid notification ledger key")
	ErrMailNotSent      = errors.New("alert email not sent")
	ErrInvalidPoint     = errors.New("invalid coordinates")
	ErrSubscriberExists = errors.New("subscriber with this email already exists")
	ErrInvalidInput     = errors.New("invalid input")
)
