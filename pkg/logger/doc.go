// Package logger builds *slog.Logger instances with consistent attribute
// names and context-derived attributes.
//
// New applies options on top of JSON/INFO defaults. WithEnvironment picks
// text output at debug level for development and JSON at info level for
// staging and production. Context extractors, such as the ones exported by
// pkg/requestid and pkg/environment, add request-scoped attributes to every
// record logged with a context:
//
//	log := logger.New(
//		logger.WithEnvironment(cfg.Env, "authstarter"),
//		logger.WithContextExtractors(requestid.LoggerExtractor(), environment.LoggerExtractor()),
//	)
//	log.InfoContext(ctx, "user signed in", logger.UserID(user.ID), logger.Component("auth"))
package logger
