package steppal

const (
	// INVALID_ARGUMENT_ERROR_CODE represents an error for invalid input arguments.
	INVALID_ARGUMENT_ERROR_CODE = 3
	// NOT_FOUND_ERROR_CODE represents an error for a resource not being found.
	NOT_FOUND_ERROR_CODE = 5
	// ABORTED_ERROR_CODE represents a concurrent write that lost a version check.
	ABORTED_ERROR_CODE = 10
	// FAILED_PRECONDITION_ERROR_CODE represents an error for a failed precondition.
	FAILED_PRECONDITION_ERROR_CODE = 9
	// UNIMPLEMENTED_ERROR_CODE represents an error for an unimplemented feature.
	UNIMPLEMENTED_ERROR_CODE = 12
	// INTERNAL_ERROR_CODE represents an internal server error.
	INTERNAL_ERROR_CODE = 13
)
