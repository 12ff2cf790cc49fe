package ble

import "tinygo.org/x/bluetooth"

// The hub speaks over the Nordic UART service: clients write commands to RX
// and subscribe to TX for answers.
var (
	UARTServiceUUID = bluetooth.ServiceUUIDNordicUART
	UARTRXCharUUID  = bluetooth.CharacteristicUUIDUARTRX
	UARTTXCharUUID  = bluetooth.CharacteristicUUIDUARTTX
)

// DefaultNotifySize fits one notification into the minimum ATT MTU of 23
const DefaultNotifySize = 20
