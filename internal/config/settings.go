package config

import (
	"time"
)

// Config holds the runtime settings of a hub device. Fields are filled by kong
// from flags, GYVERHUB_* environment variables and an optional JSON file.
type Config struct {
	Prefix  string `help:"Network prefix shared by the hubs a client scans" default:"MyDevices" env:"GYVERHUB_PREFIX"`
	Name    string `help:"Device name shown in the client" default:"GyverHub" env:"GYVERHUB_NAME"`
	Icon    string `help:"Device icon (font awesome code)" default:"" env:"GYVERHUB_ICON"`
	Version string `help:"Firmware version reported in discover and info" default:"" env:"GYVERHUB_VERSION"`
	ID      uint32 `help:"Numeric device id (0 derives it from the MAC address)" default:"0" env:"GYVERHUB_ID"`
	PIN     uint32 `help:"Access PIN, values above 999 enable it" default:"0" env:"GYVERHUB_PIN"`

	Root    string   `help:"Directory exposed as the device filesystem" default:"./hubfs" env:"GYVERHUB_ROOT" type:"path"`
	FSDepth int      `help:"Directory depth listed by fsbr" default:"5"`
	Disable []string `help:"Modules to disable (info,fsbr,format,fetch,upload,ota,ota_url,reboot,set,read,delete,rename,serial,bt,ws,http,mqtt)" sep:","`

	ConnTimeout    time.Duration `help:"Focus and transfer session timeout" default:"5s"`
	FetchChunk     int           `help:"Download chunk size in bytes" default:"512"`
	UploadChunk    int           `help:"Upload chunk size advertised to clients" default:"200"`
	BufferSize     int           `help:"Render buffer size for chunked UI frames (0 sends whole frames)" default:"0"`
	OTAType        string        `help:"Firmware container accepted by OTA" default:"bin" enum:"bin,gz"`
	OTAInsecureTLS bool          `help:"Skip certificate checks for ota_url downloads"`
	ImageDir       string        `help:"Directory OTA images are staged in (empty puts it next to the root)" type:"path"`

	HTTPAddr   string `help:"HTTP listen address (empty disables)" default:":80" env:"GYVERHUB_HTTP"`
	WSAddr     string `help:"WebSocket listen address (empty disables)" default:":81" env:"GYVERHUB_WS"`
	SerialPort string `help:"Serial port for the stream transport" env:"GYVERHUB_SERIAL"`
	SerialBaud int    `help:"Serial baud rate" default:"115200"`
	Stdio      bool   `help:"Use stdin/stdout as the stream transport"`
	BLE        bool   `help:"Advertise the Bluetooth LE transport"`
	MDNS       bool   `help:"Advertise the HTTP/WS endpoints over mDNS" default:"true" negatable:""`

	MQTT MQTTConfig `embed:"" prefix:"mqtt-"`
}

// MQTTConfig configures the broker transport
type MQTTConfig struct {
	Host      string        `help:"Broker host (empty disables)" env:"GYVERHUB_MQTT_HOST"`
	Port      int           `help:"Broker port" default:"1883"`
	Login     string        `help:"Broker login" env:"GYVERHUB_MQTT_LOGIN"`
	Password  string        `help:"Broker password" env:"GYVERHUB_MQTT_PASSWORD"`
	QoS       byte          `help:"Publish QoS" default:"0"`
	Retain    bool          `help:"Retain published answers"`
	Reconnect time.Duration `help:"Reconnect interval" default:"10s"`
}

// Default returns the settings used when nothing is configured
func Default() Config {
	return Config{
		Prefix:      "MyDevices",
		Name:        "GyverHub",
		Root:        "./hubfs",
		FSDepth:     5,
		ConnTimeout: 5 * time.Second,
		FetchChunk:  512,
		UploadChunk: 200,
		OTAType:     "bin",
		HTTPAddr:    ":80",
		WSAddr:      ":81",
		SerialBaud:  115200,
		MDNS:        true,
		MQTT: MQTTConfig{
			Port:      1883,
			Reconnect: 10 * time.Second,
		},
	}
}
