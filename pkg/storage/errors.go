package storage

type storageError string

const (
	ErrNotFound      = storageError("not found")
	ErrAlreadyExists = storageError("already exists")
)

func (e storageError) Error() string {
	return string(e)
}

func IsNotFound(err error) bool {
	return err == ErrNotFound
}

func IsAlreadyExists(err error) bool {
	return err == ErrAlreadyExists
}
