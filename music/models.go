package music

import (
	"github.com/kbukum/gotemplate/database"
)

// Genre is a band's musical genre.
type Genre string

const (
	GenreRock       Genre = "ROCK"
	GenrePop        Genre = "POP"
	GenreJazz       Genre = "JAZZ"
	GenreBlues      Genre = "BLUES"
	GenreFolk       Genre = "FOLK"
	GenreElectronic Genre = "ELECTRONIC"
	GenreHipHop     Genre = "HIP_HOP"
)

// Genres lists every genre in declaration order.
var Genres = []Genre{GenreRock, GenrePop, GenreJazz, GenreBlues, GenreFolk, GenreElectronic, GenreHipHop}

// Instrument is what a musician plays in a band.
type Instrument string

const (
	InstrumentGuitar    Instrument = "GUITAR"
	InstrumentBass      Instrument = "BASS"
	InstrumentDrums     Instrument = "DRUMS"
	InstrumentVocals    Instrument = "VOCALS"
	InstrumentKeyboard  Instrument = "KEYBOARD"
	InstrumentViolin    Instrument = "VIOLIN"
	InstrumentSaxophone Instrument = "SAXOPHONE"
)

// Instruments lists every instrument in declaration order.
var Instruments = []Instrument{
	InstrumentGuitar, InstrumentBass, InstrumentDrums, InstrumentVocals,
	InstrumentKeyboard, InstrumentViolin, InstrumentSaxophone,
}

func genreNames() []string {
	out := make([]string, len(Genres))
	for i, g := range Genres {
		out[i] = string(g)
	}
	return out
}

func instrumentNames() []string {
	out := make([]string, len(Instruments))
	for i, in := range Instruments {
		out[i] = string(in)
	}
	return out
}

type Band struct {
	database.BaseModel
	Name        string       `gorm:"not null;uniqueIndex:idx_bands_name" json:"name"`
	Genre       Genre        `gorm:"not null" json:"genre"`
	FormedYear  *int         `json:"formed_year"`
	Country     *string      `json:"country"`
	Memberships []Membership `gorm:"foreignKey:BandID" json:"memberships,omitempty"`
}

func (Band) TableName() string { return "bands" }

// Musician belongs to a primary band and may be a member of others.
type Musician struct {
	database.BaseModel
	Name        string       `gorm:"not null;index" json:"name"`
	BandID      uint         `gorm:"not null;index" json:"band_id"`
	Band        *Band        `json:"band,omitempty"`
	Memberships []Membership `gorm:"foreignKey:MusicianID" json:"memberships,omitempty"`
}

func (Musician) TableName() string { return "musicians" }

// Membership records that a musician plays an instrument in a band. A
// musician holds at most one membership per band.
type Membership struct {
	database.BaseModel
	BandID     uint       `gorm:"not null;uniqueIndex:idx_band_memberships_band_musician" json:"band_id"`
	MusicianID uint       `gorm:"not null;uniqueIndex:idx_band_memberships_band_musician;index" json:"musician_id"`
	Instrument Instrument `gorm:"not null" json:"instrument"`
	Band       *Band      `json:"band,omitempty"`
	Musician   *Musician  `json:"musician,omitempty"`
}

func (Membership) TableName() string { return "band_memberships" }
