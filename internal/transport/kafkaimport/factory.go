package kafkaimport

import (
	"cmp"
	"fmt"
	"strings"

	"github.com/tobias93/georocket/internal/importer"
)

// ParamsToConfig builds a Config from string params, the same shape the
// teacher's ingester factories parse from (one flat map, as a CLI or config
// file would supply). imp/mimeType/layer come from the caller rather than
// params since they are wiring, not per-transport tuning.
func ParamsToConfig(params map[string]string, imp *importer.Importer, mimeType, layer string) (Config, error) {
	brokers := params["brokers"]
	if brokers == "" {
		return Config{}, fmt.Errorf("kafkaimport: brokers param is required")
	}
	topic := params["topic"]
	if topic == "" {
		return Config{}, fmt.Errorf("kafkaimport: topic param is required")
	}

	group := cmp.Or(params["group"], "georocket")
	tls := params["tls"] == "true"

	var sasl *SASLConfig
	if mech := params["sasl_mechanism"]; mech != "" {
		switch strings.ToLower(mech) {
		case "plain", "scram-sha-256", "scram-sha-512":
		default:
			return Config{}, fmt.Errorf("kafkaimport: unsupported sasl_mechanism %q (supported: plain, scram-sha-256, scram-sha-512)", mech)
		}
		sasl = &SASLConfig{
			Mechanism: strings.ToLower(mech),
			User:      params["sasl_user"],
			Password:  params["sasl_password"],
		}
	}

	brokerList := strings.Split(brokers, ",")
	for i := range brokerList {
		brokerList[i] = strings.TrimSpace(brokerList[i])
	}

	return Config{
		Brokers:  brokerList,
		Topic:    topic,
		Group:    group,
		TLS:      tls,
		SASL:     sasl,
		MimeType: mimeType,
		Layer:    layer,
		Importer: imp,
	}, nil
}
