package mqttimport

import (
	"cmp"
	"fmt"

	"github.com/tobias93/georocket/internal/importer"
)

// ParamsToConfig builds a Config from string params, mirroring the teacher's
// ingester factory shape (one flat param map from a CLI or config file).
func ParamsToConfig(params map[string]string, imp *importer.Importer, mimeType, layer string) (Config, error) {
	broker := params["broker"]
	if broker == "" {
		return Config{}, fmt.Errorf("mqttimport: broker param is required")
	}
	topic := params["topic"]
	if topic == "" {
		return Config{}, fmt.Errorf("mqttimport: topic param is required")
	}

	clientID := cmp.Or(params["client_id"], "georocket")
	qos := byte(0)
	switch params["qos"] {
	case "1":
		qos = 1
	case "2":
		qos = 2
	}

	return Config{
		Broker:   broker,
		ClientID: clientID,
		Topic:    topic,
		QoS:      qos,
		Username: params["username"],
		Password: params["password"],
		MimeType: mimeType,
		Layer:    layer,
		Importer: imp,
	}, nil
}
