// Package logger provee un logger Zap global con scoping por contexto.
//
// # Design Decisions
//
//   - Global: una instancia inicializada con Init() en main; Replace la cambia en tests.
//   - Context Scoping: los middlewares HTTP inyectan un logger con request_id via ToContext.
//   - Environments: "dev" usa consola con colores, "prod" usa JSON.
//   - Campos: helpers tipados (Code, Tier, Fingerprint, Row...) para que las claves
//     sean las mismas en todo el código.
//
// # Usage
//
//	logger.Init(logger.Config{Env: cfg.Log.Env, Level: cfg.Log.Level})
//	defer logger.Sync()
//
//	log := logger.From(ctx)
//	log.Info("catalog rebuilt", logger.Records(n), logger.Fingerprint(fp))
package logger
