package bpcheckout

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xeipuuv/gojsonschema"
)

// ipnSchema validates the webhook envelope at the boundary. Only the event
// name and invoice id are required; everything else is a claim that gets
// cross-checked against the fetched invoice.
const ipnSchema = `{
	"type": "object",
	"required": ["event", "data"],
	"properties": {
		"event": {
			"type": "object",
			"required": ["name"],
			"properties": {
				"name": {"type": "string", "minLength": 1}
			}
		},
		"data": {
			"type": "object",
			"required": ["id"],
			"properties": {
				"id": {"type": "string", "minLength": 1},
				"orderId": {"type": "string"},
				"buyerFields": {
					"type": "object",
					"properties": {
						"buyerName": {"type": "string"},
						"buyerEmail": {"type": "string"},
						"buyerAddress1": {"type": "string"}
					}
				},
				"amountPaid": {"type": ["number", "string"]}
			}
		}
	}
}`

var ipnSchemaLoader = gojsonschema.NewStringLoader(ipnSchema)

// ipnEnvelope is the wire shape of a provider IPN delivery.
type ipnEnvelope struct {
	Event struct {
		Name string `json:"name"`
	} `json:"event"`
	Data struct {
		ID          string `json:"id"`
		OrderID     string `json:"orderId"`
		BuyerFields struct {
			BuyerName     string `json:"buyerName"`
			BuyerEmail    string `json:"buyerEmail"`
			BuyerAddress1 string `json:"buyerAddress1"`
		} `json:"buyerFields"`
		AmountPaid json.RawMessage `json:"amountPaid"`
	} `json:"data"`
}

// ParseIpnEvent parses and validates a raw webhook body. Any malformed body
// or missing required field surfaces as a ParseError; nothing downstream
// sees unvalidated fields.
func ParseIpnEvent(body []byte) (*IpnEvent, error) {
	result, err := gojsonschema.Validate(ipnSchemaLoader, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return nil, NewParseError("ipn body is not valid JSON", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if !result.Valid() {
		details := make(map[string]interface{}, len(result.Errors()))
		for _, desc := range result.Errors() {
			details[desc.Field()] = desc.Description()
		}
		return nil, NewParseError("ipn body failed schema validation", details)
	}

	var envelope ipnEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, NewParseError("ipn body failed to decode", map[string]interface{}{
			"error": err.Error(),
		})
	}

	event := &IpnEvent{
		Event:     envelope.Event.Name,
		InvoiceID: envelope.Data.ID,
		OrderID:   envelope.Data.OrderID,
		Buyer: Buyer{
			Name:     envelope.Data.BuyerFields.BuyerName,
			Email:    envelope.Data.BuyerFields.BuyerEmail,
			Address1: envelope.Data.BuyerFields.BuyerAddress1,
		},
	}
	// amountPaid arrives as either a JSON number or a quoted decimal string.
	if raw := strings.Trim(string(envelope.Data.AmountPaid), `"`); raw != "" && raw != "null" {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, NewParseError("ipn amountPaid is not numeric", map[string]interface{}{
				"amountPaid": raw,
			})
		}
		event.AmountPaid = amount
	}
	return event, nil
}
