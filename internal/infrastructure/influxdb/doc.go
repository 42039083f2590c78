// Package influxdb records appliance element history in InfluxDB.
//
// It wraps the official influxdb-client-go v2 library. Every write to a
// supported element becomes one point in the "erd_values" measurement,
// tagged with the appliance and element, carrying the raw payload as hex
// and, for payloads of up to eight bytes, its unsigned integer value.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteElementValue("fridge", 0x0092, payload)
//
// # Thread Safety
//
// All methods are safe for concurrent use. Writes are non-blocking and
// batched according to batch_size and flush_interval; asynchronous write
// failures are delivered to the SetOnError callback.
package influxdb
