package relay

const (
	// Размер буфера копирования между клиентом и backend.
	// 64KB покрывает максимальную TLS запись (16KB) с запасом.
	copyBufferSize = 64 * 1024

	// TCP_USER_TIMEOUT: мёртвое соединение закрывается через 30 секунд без ACK.
	tcpUserTimeoutMs = 30000
)

type Logger interface {
	Printf(msg string, args ...interface{})
}
