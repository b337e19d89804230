package serviceiface

// Service is the unit the app manager starts and stops. Name must be
// stable across restarts because services.yaml refers to it.
type Service interface {
	Name() string
	Start() error
	Stop() error
}
