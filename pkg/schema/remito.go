package schema

const RemitoSchemaTextV1 = `{
	"type": "record",
	"namespace": "orders",
	"name": "remito",
	"fields": [
		{"name": "number", "type": "string"},
		{"name": "customer", "type": "string"},
		{"name": "created_at", "type": "string"},
		{"name": "items", "type": {
			"type": "array",
			"items": {
				"type": "record",
				"name": "remito_item",
				"fields": [
					{"name": "code", "type": "string"},
					{"name": "description", "type": "string"},
					{"name": "unit_price", "type": "double"},
					{"name": "quantity", "type": "long"},
					{"name": "subtotal", "type": "double"}
				]
			}
		}},
		{"name": "total", "type": "double"}
	]
}`

type (
	RemitoV1 struct {
		Number    string         `avro:"number"`
		Customer  string         `avro:"customer"`
		CreatedAt string         `avro:"created_at"`
		Items     []RemitoItemV1 `avro:"items"`
		Total     float64        `avro:"total"`
	}

	RemitoItemV1 struct {
		Code        string  `avro:"code"`
		Description string  `avro:"description"`
		UnitPrice   float64 `avro:"unit_price"`
		Quantity    int     `avro:"quantity"`
		Subtotal    float64 `avro:"subtotal"`
	}
)
