package config

// Error marks a required setting with no value, either from the
// environment or from an explicit request argument.
type Error struct {
	Name string
}

func (e *Error) Error() string {
	return e.Name + " is not set"
}

// Require returns value unchanged, or an *Error naming the missing
// setting when it is empty.
func Require(name, value string) (string, error) {
	if value == "" {
		return "", &Error{Name: name}
	}
	return value, nil
}
