package opcode

const (
	START = iota // 0: Session opens, carries file size
	DATA         // 1: Reserved, body travels unframed
	END          // 2: Session closes, carries bytes sent and digest
)

// Name returns printable name of a command
func Name(command uint8) string {
	switch command {
	case START:
		return "START"
	case DATA:
		return "DATA"
	case END:
		return "END"
	}
	return "UNKNOWN"
}
