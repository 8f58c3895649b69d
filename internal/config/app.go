package config

type AppConfig struct {
	Server ServerConfig
	Import ImportConfig
	Log    LogConfig
}

func LoadApp() (AppConfig, error) {
	logCfg, err := LoadLog()
	if err != nil {
		return AppConfig{}, err
	}
	serverCfg, err := LoadServer()
	if err != nil {
		return AppConfig{}, err
	}
	importCfg, err := LoadImport()
	if err != nil {
		return AppConfig{}, err
	}
	return AppConfig{
		Server: serverCfg,
		Import: importCfg,
		Log:    logCfg,
	}, nil
}
