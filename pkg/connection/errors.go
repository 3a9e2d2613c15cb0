package connection

import (
	"errors"
	"fmt"
)

var (
	// ErrNotDefined is returned when an alias has no registered settings.
	ErrNotDefined = errors.New("connection not defined")
	// ErrNotSecondary is returned when a listed secondary is not marked as one.
	ErrNotSecondary = errors.New("connection is not a secondary")
	// ErrSecondaryCycle is returned when secondary references loop back.
	ErrSecondaryCycle = errors.New("secondary references form a cycle")
	// ErrConnectFailed is returned when the driver cannot reach the server.
	ErrConnectFailed = errors.New("cannot connect")
	// ErrAuthFailed is returned when the database handle fails to authenticate.
	ErrAuthFailed = errors.New("authentication failed")
)

// ConnectionError reports a failure to resolve or establish an alias.
type ConnectionError struct {
	Alias string
	Err   error
	msg   string
}

func (e *ConnectionError) Error() string {
	return e.msg
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

func notDefinedError(alias string) *ConnectionError {
	msg := fmt.Sprintf("connection with alias %q has not been defined", alias)
	if alias == DefaultAlias {
		msg = "you have not defined a default connection"
	}
	return &ConnectionError{Alias: alias, Err: ErrNotDefined, msg: msg}
}

func notSecondaryError(alias, secondary string) *ConnectionError {
	return &ConnectionError{
		Alias: alias,
		Err:   ErrNotSecondary,
		msg:   fmt.Sprintf("connection %q lists %q as a secondary but it is not marked secondary", alias, secondary),
	}
}

func cycleError(alias string) *ConnectionError {
	return &ConnectionError{
		Alias: alias,
		Err:   ErrSecondaryCycle,
		msg:   fmt.Sprintf("secondary references of %q form a cycle", alias),
	}
}

func connectError(alias string, cause error) *ConnectionError {
	return &ConnectionError{
		Alias: alias,
		Err:   errors.Join(ErrConnectFailed, cause),
		msg:   fmt.Sprintf("cannot connect to database %q: %v", alias, cause),
	}
}

func authError(alias string, cause error) *ConnectionError {
	return &ConnectionError{
		Alias: alias,
		Err:   errors.Join(ErrAuthFailed, cause),
		msg:   fmt.Sprintf("cannot authenticate database %q: %v", alias, cause),
	}
}
