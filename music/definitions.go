package music

import (
	"github.com/kbukum/gotemplate/entity"
)

// Field descriptor tables for the factory. They mirror the migrations;
// the schema test fails when a column is missing.

var BandDefinition = &entity.Definition{
	Name:  "Band",
	Table: "bands",
	Fields: []entity.Field{
		{Name: "name", Type: entity.String, Unique: true, MinLen: 1, MaxLen: 100},
		{Name: "genre", Type: entity.String, Choices: genreNames()},
		{Name: "formed_year", Type: entity.Int, Nullable: true, Min: 1900, Max: 2030},
		{Name: "country", Type: entity.String, Nullable: true, MaxLen: 100},
	},
	Build: func(v entity.Values) entity.Model {
		return &Band{
			Name:       v.String("name"),
			Genre:      Genre(v.String("genre")),
			FormedYear: v.IntPtr("formed_year"),
			Country:    v.StringPtr("country"),
		}
	},
}

var MusicianDefinition = &entity.Definition{
	Name:  "Musician",
	Table: "musicians",
	Fields: []entity.Field{
		{Name: "name", Type: entity.String, MinLen: 1, MaxLen: 100},
		{Name: "band_id", Type: entity.ForeignKey, Ref: BandDefinition},
	},
	Build: func(v entity.Values) entity.Model {
		return &Musician{
			Name:   v.String("name"),
			BandID: v.Key("band_id"),
		}
	},
}

var MembershipDefinition = &entity.Definition{
	Name:  "Membership",
	Table: "band_memberships",
	Fields: []entity.Field{
		{Name: "band_id", Type: entity.ForeignKey, Ref: BandDefinition},
		{Name: "musician_id", Type: entity.ForeignKey, Ref: MusicianDefinition},
		{Name: "instrument", Type: entity.String, Choices: instrumentNames()},
	},
	Build: func(v entity.Values) entity.Model {
		return &Membership{
			BandID:     v.Key("band_id"),
			MusicianID: v.Key("musician_id"),
			Instrument: Instrument(v.String("instrument")),
		}
	},
}

// Definitions lists every entity in dependency order.
func Definitions() []*entity.Definition {
	return []*entity.Definition{BandDefinition, MusicianDefinition, MembershipDefinition}
}
