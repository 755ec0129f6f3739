// Command oscoregw is a demo OSCORE-protecting gateway: it reads plain
// CoAP datagrams off a UDP socket, runs each one through a single
// oscore.Pipeline bound to one SecurityContext, and writes the protected
// datagram back to the sender. It exists to exercise cmd/oscoregw's
// wiring end to end, not as a production proxy (no peer discovery, no
// retransmission, one shared context for every source address).
package main

import (
	"encoding/hex"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/GiterLab/go-oscore/internal/config"
	"github.com/GiterLab/go-oscore/internal/oscorelog"
	"github.com/GiterLab/go-oscore/oscore"
)

const maxPktLen = 1500

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "oscoregw: config: %v\n", err)
		os.Exit(1)
	}

	oscorelog.Debug(cfg.LogLevel == "debug")
	oscorelog.Telemetry(cfg.SendTelemetry)

	ctx, err := buildContext(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "oscoregw: security context: %v\n", err)
		os.Exit(1)
	}
	pipeline := oscore.NewPipeline(ctx)

	uaddr, err := net.ResolveUDPAddr("udp4", stripScheme(cfg.ListenAddr))
	if err != nil {
		fmt.Fprintf(os.Stderr, "oscoregw: resolve: %v\n", err)
		os.Exit(1)
	}
	conn, err := net.ListenUDP("udp4", uaddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "oscoregw: listen: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	oscorelog.TraceInfo("[oscoregw] listening on %s", uaddr)
	serve(conn, pipeline, cfg.ReadTimeout)
}

// serve mirrors GiterLab-go-coap/server.go's Serve loop: read, dispatch in
// a goroutine, keep going past transient errors. The dispatch here is
// Pipeline.Protect plus a write-back instead of a Handler callback.
func serve(conn *net.UDPConn, pipeline *oscore.Pipeline, readTimeout time.Duration) {
	buf := make([]byte, maxPktLen)
	for {
		nr, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			if neterr, ok := err.(net.Error); ok && neterr.Timeout() {
				continue
			}
			oscorelog.TraceError("[oscoregw] ReadFromUDP: %v", err)
			continue
		}
		in := make([]byte, nr)
		copy(in, buf[:nr])
		go handleDatagram(conn, addr, in, pipeline)
	}
}

func handleDatagram(conn *net.UDPConn, addr *net.UDPAddr, in []byte, pipeline *oscore.Pipeline) {
	defer func() {
		if r := recover(); r != nil {
			oscorelog.TraceError("[oscoregw] panic handling datagram: %v", r)
		}
	}()

	var out [maxPktLen]byte
	pipeline.Ctx.Lock()
	n, err := pipeline.Protect(in, out[:])
	pipeline.Ctx.Unlock()
	if err != nil {
		oscorelog.TraceError("[oscoregw] protect failed for %v: %v", addr, err)
		return
	}

	if _, err := conn.WriteToUDP(out[:n], addr); err != nil {
		oscorelog.TraceError("[oscoregw] WriteToUDP: %v", err)
	}
}

func buildContext(cfg config.GatewayConfig) (*oscore.SecurityContext, error) {
	senderID, err := hex.DecodeString(cfg.SenderIDHex)
	if err != nil {
		return nil, fmt.Errorf("sender id: %w", err)
	}
	senderKey, err := hex.DecodeString(cfg.SenderKeyHex)
	if err != nil {
		return nil, fmt.Errorf("sender key: %w", err)
	}
	commonIV, err := hex.DecodeString(cfg.CommonIVHex)
	if err != nil {
		return nil, fmt.Errorf("common iv: %w", err)
	}
	idContext, err := hex.DecodeString(cfg.IDContextHex)
	if err != nil {
		return nil, fmt.Errorf("id context: %w", err)
	}

	return oscore.NewSecurityContext(oscore.AESCCM16_64_128, 10, senderID, senderKey, commonIV, idContext)
}

// stripScheme trims a udp4:// prefix some OSCORE_GW_LISTEN_ADDR values
// carry for readability; net.ResolveUDPAddr wants a bare host:port.
func stripScheme(addr string) string {
	const scheme = "udp4://"
	if len(addr) >= len(scheme) && addr[:len(scheme)] == scheme {
		return addr[len(scheme):]
	}
	return addr
}
