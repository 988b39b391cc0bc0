// Package admin exposes a read-only HTTP surface over a running wire
// server: health, the peer table, and prometheus metrics. It never
// mutates the table.
package admin

import (
	"net/http"
	"sort"
	"time"

	"github.com/danmuck/peerwire/internal/observability"
	"github.com/danmuck/peerwire/internal/peer"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// PeerTable is the server-side view the admin surface reads.
type PeerTable interface {
	IsRunning() bool
	GetPeers() []*peer.Peer
	GetPeerCount() int
}

type Surface struct {
	ID       string
	Addr     string
	Appeared time.Time

	table  PeerTable
	router *gin.Engine
}

type peerView struct {
	ID           uint32 `json:"id"`
	Addr         string `json:"addr"`
	Port         uint16 `json:"port"`
	State        string `json:"state"`
	RTTMS        uint32 `json:"rtt_ms"`
	LastActivity int64  `json:"last_activity_us"`
}

func New(id, addr string, table PeerTable, corsOrigins []string) *Surface {
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(id, log.Logger))
	r.Use(observability.RequestMetricsMiddleware(id))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(corsOrigins),
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Surface{
		ID:       id,
		Addr:     addr,
		Appeared: time.Now(),
		table:    table,
		router:   r,
	}
	s.registerRoutes()
	return s
}

func (s *Surface) HTTPRouter() *gin.Engine {
	return s.router
}

func (s *Surface) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.Appeared).String(),
			"node":    s.ID,
			"running": s.table.IsRunning(),
		})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/peers", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"count": s.table.GetPeerCount(),
			"peers": listPeers(s.table),
		})
	})
}

func (s *Surface) Serve() error {
	return s.router.Run(s.Addr)
}

func listPeers(table PeerTable) []peerView {
	peers := table.GetPeers()
	list := make([]peerView, 0, len(peers))
	for _, p := range peers {
		if p == nil {
			continue
		}
		list = append(list, peerView{
			ID:           p.ID(),
			Addr:         p.Addr(),
			Port:         p.Port(),
			State:        p.State().String(),
			RTTMS:        p.RTT(),
			LastActivity: p.LastActivity(),
		})
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].ID < list[j].ID
	})
	return list
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
