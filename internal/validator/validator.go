package validator

// Validator is the name service constructors use for the business validator
type Validator = BusinessValidator

// New creates a validator with all custom rules registered
func New() *Validator {
	return NewBusinessValidator()
}
