package config

// ConfigBackend abstracts platform-native config storage behind the
// key specs in keys.go. macOS reads and writes UserDefaults through
// the `defaults` CLI; every other platform uses a JSON file under
// $XDG_CONFIG_HOME/kbready. The ok result distinguishes "key unset,
// use the default" from a stored zero value.
type ConfigBackend interface {
	GetString(key string) (val string, ok bool, err error)
	GetInt(key string) (val int, ok bool, err error)
	SetString(key, val string) error
	SetInt(key string, val int) error
	Delete(key string) error
}
