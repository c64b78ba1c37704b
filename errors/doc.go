/*
Package errors provides semantic error types for the RecordStore library.

The package defines the error taxonomy of a record operation with specific
types that can be checked using the standard errors.Is() function or the
provided helper functions.

Common Errors:

	var (
	    ErrNotFound      = errors.New("record not found")
	    ErrAlreadyExists = errors.New("record already exists")
	    ErrInvalidInput  = errors.New("invalid input")
	    ErrIndexPending  = errors.New("secondary index not caught up")
	    ErrUnknownModel  = errors.New("no schema registered for model")
	)

Absence is not an error for reads and removes: FindByID returns (nil, nil)
and DestroyByID returns a zero count. NotFoundError is for callers that must
treat absence as a failure, such as a command-line get.

Usage:

	_, err := people.Create(ctx, storagemodels.Record{"id": "0", "name": "Charlie"})
	if errors.IsAlreadyExists(err) {
	    // identifier collision, the stored record is unchanged
	}

	created, err := people.CreateAll(ctx, batch)
	if be, ok := errors.AsBatchError(err); ok {
	    for _, f := range be.Failures {
	        log.Printf("record %d (%s) failed: %v", f.Index, f.ID, f.Err)
	    }
	}

Transport errors raised by a backend are passed through untouched so callers
can still match SDK error types with errors.As.
*/
package errors
