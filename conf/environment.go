package conf

import "fmt"

// EnvironmentEnum deployment environment
type EnvironmentEnum int

const (
	LocalEnvironmentEnum EnvironmentEnum = iota + 1
	ExampleEnvironmentEnum
	TestEnvironmentEnum
	ProductionEnvironmentEnum
)

// SystemEnvironmentEnum current environment, set by cmd before InitConfig
var SystemEnvironmentEnum = LocalEnvironmentEnum

// ConfigDir directory holding the per-environment yaml files
var ConfigDir = "./conf"

// String returns the short environment name used in config file names
func (e EnvironmentEnum) String() string {
	switch e {
	case LocalEnvironmentEnum:
		return "loc"
	case ExampleEnvironmentEnum:
		return "example"
	case TestEnvironmentEnum:
		return "test"
	case ProductionEnvironmentEnum:
		return "prod"
	default:
		return "loc"
	}
}

// ParseEnvironment maps a -env flag value to its enum
func ParseEnvironment(name string) (EnvironmentEnum, error) {
	switch name {
	case "loc", "local":
		return LocalEnvironmentEnum, nil
	case "example":
		return ExampleEnvironmentEnum, nil
	case "test":
		return TestEnvironmentEnum, nil
	case "prod", "production":
		return ProductionEnvironmentEnum, nil
	default:
		return 0, fmt.Errorf("unknown environment: %s", name)
	}
}

// GetYaml returns the config file path for the current environment
func GetYaml() string {
	return fmt.Sprintf("%s/conf_%s.yaml", ConfigDir, SystemEnvironmentEnum)
}
