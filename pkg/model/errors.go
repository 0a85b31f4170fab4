package model

type errorString string

func (e errorString) Error() string {
	return string(e)
}

const (
	// IDIsRequired error whenever an id is expected but not provided
	IDIsRequired errorString = "id is required"

	// VersionIsRequired error whenever a version is expected but not provided
	VersionIsRequired errorString = "version is required"
)
