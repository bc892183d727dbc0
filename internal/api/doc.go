// Package api provides the AutoFilm REST client.
//
// Routers mounted by the server:
//   - /api/tasks   task status, trigger, stop, task logs
//   - /api/logs    log queries, log files, clear
//   - /api/system  info, health, stats, version, environment, restart
//   - /api/config  task configuration and its backups
//
// Errors are FastAPI style: a non-2xx status with {"detail": "..."}.
package api
