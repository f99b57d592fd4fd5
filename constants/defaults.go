package constants

const (
	PROTOCOL_MAGIC   = 0xDEADBEEF              // Identifies the protocol on every header
	PROTOCOL_VERSION = 1                       // Current wire generation
	HASH_SIZE        = 32                      // SHA256 digest length
	TRANSFER_CHUNK   = 1024 * 1024             // 1MB reads, writes and sends
	MAX_FILE_SIZE    = 16 * 1024 * 1024 * 1024 // 16GB source ceiling
	MAX_FILENAME     = 255                     // Longest accepted file name
	DEFAULT_PORT     = 9999                    // Receiver port
	DEFAULT_LISTEN   = "0.0.0.0"               // Receiver bind address
	DEFAULT_DSCP     = 0x0A                    // QoS for high throughput
	FILE_CREATE_MODE = 0644                    // Permissions of received files
)

const Title = "Single file TCP transfer with SHA256 verification"
