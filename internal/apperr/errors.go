package apperr

// Sentinels shared across packages. Match them with errors.Is.
var (
	ErrInsufficientStock = New(CategoryDomain, "INSUFFICIENT_STOCK", "insufficient stock")
	ErrInvalidQuantity   = New(CategoryDomain, "INVALID_QUANTITY", "quantity must be positive")
	ErrInvalidTransition = New(CategoryDomain, "INVALID_TRANSITION", "status transition not allowed")
	ErrItemUnavailable   = New(CategoryDomain, "ITEM_UNAVAILABLE", "menu item is not available")
	ErrTableOccupied     = New(CategoryDomain, "TABLE_OCCUPIED", "table is already taken")
	ErrTableMismatch     = New(CategoryDomain, "TABLE_MISMATCH", "reservation is not seated at the source table")

	ErrNotFound  = New(CategoryNotFound, "NOT_FOUND", "record not found")
	ErrForbidden = New(CategoryForbidden, "FORBIDDEN", "action not permitted")

	ErrLockTimeout      = New(CategoryContention, "LOCK_TIMEOUT", "timed out waiting for lock")
	ErrQueueFull        = New(CategoryContention, "QUEUE_FULL", "queue is full")
	ErrAwaitTimeout     = New(CategoryContention, "AWAIT_TIMEOUT", "timed out waiting for result")
	ErrAcquireTimeout   = New(CategoryAcquisition, "ACQUIRE_TIMEOUT", "could not acquire every lock of the batch")
	ErrRetriesExhausted = New(CategoryAcquisition, "RETRIES_EXHAUSTED", "lock acquisition retries exhausted")
	ErrUnknownResource  = New(CategoryAcquisition, "UNKNOWN_RESOURCE", "resource has no lock handle")

	ErrReentrantWrite = New(CategoryReentry, "REENTRANT_WRITE", "write lock is not reentrant")
	ErrAwaitInStage   = New(CategoryReentry, "AWAIT_IN_STAGE", "awaiting a future inside a pipeline stage")

	ErrWorkerFailed = New(CategoryWorker, "WORKER_FAILED", "work item processing failed")

	ErrStopped = New(CategoryShutdown, "STOPPED", "component is shut down")
)
