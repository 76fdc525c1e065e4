// Package config loads environment-backed configuration structs.
//
// Structs use caarlos0/env tags. A .env file in the working directory is
// loaded once before the first parse. Each struct type is parsed once and
// cached, so packages can call Load for their own config freely:
//
//	var cfg pg.Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
package config
