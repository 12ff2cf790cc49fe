package ble

import (
	"fmt"

	"tinygo.org/x/bluetooth"

	"github.com/vitaminmoo/gyverhub/internal/config"
)

// Advertise enables the default adapter, registers the UART service and
// starts advertising name
func (t *Transport) Advertise(name string) error {
	adapter := bluetooth.DefaultAdapter
	if err := adapter.Enable(); err != nil {
		return fmt.Errorf("failed to enable Bluetooth: %w", err)
	}

	adapter.SetConnectHandler(func(device bluetooth.Device, connected bool) {
		address, _ := device.Address.MarshalText()
		config.Debugf("Central %s connected=%v", string(address), connected)
		t.setConnected(connected)
	})

	var rx, tx bluetooth.Characteristic
	err := adapter.AddService(&bluetooth.Service{
		UUID: UARTServiceUUID,
		Characteristics: []bluetooth.CharacteristicConfig{
			{
				Handle: &rx,
				UUID:   UARTRXCharUUID,
				Flags:  bluetooth.CharacteristicWritePermission | bluetooth.CharacteristicWriteWithoutResponsePermission,
				WriteEvent: func(_ bluetooth.Connection, _ int, value []byte) {
					t.connected.Store(true)
					t.Receive(value)
				},
			},
			{
				Handle: &tx,
				UUID:   UARTTXCharUUID,
				Flags:  bluetooth.CharacteristicNotifyPermission | bluetooth.CharacteristicReadPermission,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to add UART service: %w", err)
	}
	t.setTX(&tx)

	adv := adapter.DefaultAdvertisement()
	err = adv.Configure(bluetooth.AdvertisementOptions{
		LocalName:    name,
		ServiceUUIDs: []bluetooth.UUID{UARTServiceUUID},
	})
	if err != nil {
		return fmt.Errorf("failed to configure advertisement: %w", err)
	}
	if err := adv.Start(); err != nil {
		return fmt.Errorf("failed to start advertising: %w", err)
	}
	t.log.WithField("name", name).Info("Advertising UART service")
	return nil
}
