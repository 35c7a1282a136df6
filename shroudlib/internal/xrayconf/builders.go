package xrayconf

const (
	DefaultPath        = "/"
	DefaultServiceName = "grpc"
	DefaultSpiderX     = "/"
	DefaultUpMbps      = 50
	DefaultDownMbps    = 100
)

// Reality is VLESS + XTLS Vision over TCP with REALITY.
func Reality(c Common, publicKey, shortID string) Params {
	return Params{
		Protocol: ProtocolVLESS,
		Flow:     FlowVision,
		StreamSettings: StreamSettings{
			Network:  NetworkTCP,
			Security: SecurityReality,
			RealitySettings: &RealitySettings{
				ServerName:  c.ServerName,
				Fingerprint: c.Fingerprint,
				PublicKey:   publicKey,
				ShortID:     shortID,
				SpiderX:     DefaultSpiderX,
			},
			Sockopt: c.sockopt(),
		},
	}
}

// SplitHTTP is VLESS over SplitHTTP behind a CDN.
func SplitHTTP(c Common, path, host string) Params {
	if path == "" {
		path = DefaultPath
	}

	return Params{
		Protocol: ProtocolVLESS,
		StreamSettings: StreamSettings{
			Network:     NetworkSplitHTTP,
			Security:    SecurityTLS,
			TLSSettings: c.tls(),
			SplitHTTPSettings: &SplitHTTPSettings{
				Path: path,
				Host: host,
				Mode: "auto",
			},
			Sockopt: c.sockopt(),
		},
	}
}

// WebSocket is VLESS or VMess over WebSocket with TLS.
func WebSocket(protocol string, c Common, path, host string) Params {
	if path == "" {
		path = DefaultPath
	}

	settings := &WSSettings{
		Path: path,
	}

	if host != "" {
		settings.Headers = map[string]string{"Host": host}
	}

	return Params{
		Protocol: protocol,
		StreamSettings: StreamSettings{
			Network:     NetworkWS,
			Security:    SecurityTLS,
			TLSSettings: c.tls(),
			WSSettings:  settings,
			Sockopt:     c.sockopt(),
		},
	}
}

// GRPC is VLESS over gRPC with TLS.
func GRPC(c Common, serviceName string) Params {
	if serviceName == "" {
		serviceName = DefaultServiceName
	}

	return Params{
		Protocol: ProtocolVLESS,
		StreamSettings: StreamSettings{
			Network:     NetworkGRPC,
			Security:    SecurityTLS,
			TLSSettings: c.tls(),
			GRPCSettings: &GRPCSettings{
				ServiceName: serviceName,
				MultiMode:   true,
			},
			Sockopt: c.sockopt(),
		},
	}
}

// Hysteria2 is QUIC based with Brutal congestion control.
func Hysteria2(c Common, upMbps, downMbps int) Params {
	if upMbps <= 0 {
		upMbps = DefaultUpMbps
	}

	if downMbps <= 0 {
		downMbps = DefaultDownMbps
	}

	tls := c.tls()
	tls.ALPN = []string{"h3"}

	return Params{
		Protocol: ProtocolHysteria2,
		StreamSettings: StreamSettings{
			Network:     NetworkUDP,
			Security:    SecurityTLS,
			TLSSettings: tls,
			HysteriaSettings: &HysteriaSettings{
				Version:    2,
				UpMbps:     upMbps,
				DownMbps:   downMbps,
				Congestion: CongestionBrutal,
			},
		},
	}
}

// TUIC is QUIC based with a given congestion control.
func TUIC(c Common, congestion string) Params {
	if congestion == "" {
		congestion = CongestionBBR
	}

	tls := c.tls()
	tls.ALPN = []string{"h3"}

	return Params{
		Protocol: ProtocolTUIC,
		StreamSettings: StreamSettings{
			Network:     NetworkUDP,
			Security:    SecurityTLS,
			TLSSettings: tls,
			TUICSettings: &TUICSettings{
				CongestionControl: congestion,
				UDPRelayMode:      "native",
				ZeroRTTHandshake:  false,
			},
		},
	}
}

// Direct is a freedom outbound which only fragments TLS of a real
// destination.
func Direct(c Common) Params {
	return Params{
		Protocol: ProtocolFreedom,
		StreamSettings: StreamSettings{
			Network:     NetworkTCP,
			Security:    SecurityTLS,
			TLSSettings: c.tls(),
			Sockopt:     c.sockopt(),
		},
	}
}
