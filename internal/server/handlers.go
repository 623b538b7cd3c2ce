package server

import (
	"github.com/gin-gonic/gin"
)

// 基础handlers
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(200, gin.H{
		"status": "ok",
		"model":  s.cfg.Upstream.Model,
	})
}

func (s *Server) ping(c *gin.Context) {
	c.JSON(200, gin.H{"message": "pong"})
}

// Relay handlers live in relay.go
