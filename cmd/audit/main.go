// Command audit consumes movie change events from RabbitMQ and appends them
// to <AUDIT_LOG_DIR>/movie_audit.log.
package main

import (
	"github.com/labstack/gommon/log"

	"github.com/iliyamo/movie-catalog/internal/config"
	"github.com/iliyamo/movie-catalog/internal/queue"
)

func main() {
	url, dir := config.LoadAudit()
	log.SetHeader("${time_rfc3339} ${level} audit")
	if err := queue.StartMovieConsumer(url, dir); err != nil {
		log.Fatal(err)
	}
}
