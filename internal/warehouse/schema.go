package warehouse

// columns is the warehouse table layout, matching the dataset column
// order so COPY can stream records positionally.
var columns = []string{
	"year",
	"month_number",
	"month",
	"transport_mode",
	"commodity_code",
	"origin_port",
	"destination_port",
	"state",
	"country_code",
	"unit_quantity",
	"unit_flagged",
	"quantity",
	"weight",
	"value_fob",
	"value_cif",
	"value_per_tonne_fob",
	"value_per_tonne_cif",
	"insurance_freight_cost",
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS %s (
    year                    INTEGER NOT NULL,
    month_number            INTEGER NOT NULL,
    month                   TEXT NOT NULL,
    transport_mode          TEXT NOT NULL,
    commodity_code          TEXT NOT NULL,
    origin_port             TEXT NOT NULL,
    destination_port        TEXT NOT NULL,
    state                   TEXT NOT NULL,
    country_code            TEXT NOT NULL,
    unit_quantity           TEXT NOT NULL,
    unit_flagged            BOOLEAN NOT NULL,
    quantity                DOUBLE PRECISION NOT NULL,
    weight                  DOUBLE PRECISION NOT NULL,
    value_fob               DOUBLE PRECISION NOT NULL,
    value_cif               DOUBLE PRECISION NOT NULL,
    value_per_tonne_fob     DOUBLE PRECISION,
    value_per_tonne_cif     DOUBLE PRECISION,
    insurance_freight_cost  DOUBLE PRECISION NOT NULL
);
CREATE INDEX IF NOT EXISTS %s ON %s (year, month_number);
CREATE INDEX IF NOT EXISTS %s ON %s (commodity_code);
`
