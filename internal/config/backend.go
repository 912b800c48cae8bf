package config

// store persists the non-secret settings that `codevoice config set`
// writes. Keys are the dotted names listed in specs ("server.port").
// Values read back from a store are overridden by CODEVOICE_*
// environment variables; the API key never passes through a store.
type store interface {
	GetString(key string) (val string, ok bool, err error)
	GetInt(key string) (val int, ok bool, err error)
	SetString(key, val string) error
	SetInt(key string, val int) error
	// Unset removes key so the built-in default applies again.
	Unset(key string) error
	// Location is the file path or defaults domain shown by `config show`.
	Location() string
}
