package app

import (
	"log"
	"runtime/debug"

	tele "gopkg.in/telebot.v3"
)

func RecoverMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			defer func() {
				if r := recover(); r != nil {
					who := int64(0)
					if c.Sender() != nil {
						who = c.Sender().ID
					}
					log.Printf("💥 PANIC [handler, user %d]: %v\n%s", who, r, string(debug.Stack()))
				}
			}()
			return next(c)
		}
	}
}
