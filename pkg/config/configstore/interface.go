package configstore

// ConfigStore loads and saves a YAML/BSON shaped document.
type ConfigStore interface {
	Load(out any) error
	Save(data any) error
}
