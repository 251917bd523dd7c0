package music

import (
	"context"
	"strconv"

	"gorm.io/gorm"

	"github.com/kbukum/gotemplate/database"
	"github.com/kbukum/gotemplate/database/query"
	apperrors "github.com/kbukum/gotemplate/errors"
	"github.com/kbukum/gotemplate/logger"
	"github.com/kbukum/gotemplate/validation"
)

var (
	BandsQuery = query.Config{
		AllowedFilters: []string{"genre"},
		FieldAliases:   map[string]string{"genre": "bands.genre"},
		Choices:        map[string][]string{"genre": genreNames()},
		DefaultSort:    "bands.id",
	}
	MusiciansQuery = query.Config{
		AllowedFilters: []string{"band_id"},
		DefaultSort:    "musicians.id",
	}
)

// Service implements the music operations on one database handle. Build
// one per request on the request's handle.
type Service struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewService creates a service writing through db.
func NewService(db *gorm.DB, log *logger.Logger) *Service {
	return &Service{db: db, log: log.WithComponent("music")}
}

func (s *Service) CreateBand(ctx context.Context, in CreateBandRequest) (*Band, error) {
	band := &Band{Name: in.Name, Genre: in.Genre, FormedYear: in.FormedYear, Country: in.Country}
	if err := s.db.WithContext(ctx).Create(band).Error; err != nil {
		return nil, database.FromDatabase(err, "band")
	}
	s.log.Info("Band created", logger.EntityFields("band", band.ID))
	return band, nil
}

// ListBands returns a page of bands ordered by key, optionally of one genre.
func (s *Service) ListBands(ctx context.Context, p query.Params) ([]Band, error) {
	bands, err := query.Find[Band](s.db.WithContext(ctx).Model(&Band{}), p, BandsQuery)
	if err != nil {
		return nil, database.FromDatabase(err, "band")
	}
	return bands, nil
}

// GetBand returns a band with its memberships and their musicians.
func (s *Service) GetBand(ctx context.Context, id uint) (*Band, error) {
	var band Band
	err := s.db.WithContext(ctx).
		Preload("Memberships", func(db *gorm.DB) *gorm.DB { return db.Order("band_memberships.id") }).
		Preload("Memberships.Musician").
		First(&band, id).Error
	if err != nil {
		return nil, notFound(err, "band", id)
	}
	return &band, nil
}

// UpdateBand applies the fields set in in.
func (s *Service) UpdateBand(ctx context.Context, id uint, in UpdateBandRequest) (*Band, error) {
	band, err := s.findBand(ctx, id)
	if err != nil {
		return nil, err
	}
	if changes := in.changes(); len(changes) > 0 {
		if err := s.db.WithContext(ctx).Model(band).Updates(changes).Error; err != nil {
			return nil, database.FromDatabase(err, "band")
		}
	}
	return s.findBand(ctx, id)
}

// DeleteBand removes a band together with its memberships and the
// musicians whose primary band it is.
func (s *Service) DeleteBand(ctx context.Context, id uint) error {
	return database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		if _, err := s.findBandTx(tx, id); err != nil {
			return err
		}
		primary := tx.Model(&Musician{}).Select("id").Where("band_id = ?", id)
		if err := tx.Where("band_id = ? OR musician_id IN (?)", id, primary).Delete(&Membership{}).Error; err != nil {
			return database.FromDatabase(err, "membership")
		}
		if err := tx.Where("band_id = ?", id).Delete(&Musician{}).Error; err != nil {
			return database.FromDatabase(err, "musician")
		}
		if err := tx.Delete(&Band{}, id).Error; err != nil {
			return database.FromDatabase(err, "band")
		}
		s.log.Info("Band deleted", logger.EntityFields("band", id))
		return nil
	})
}

// CreateMusician adds a musician to an existing band.
func (s *Service) CreateMusician(ctx context.Context, in CreateMusicianRequest) (*Musician, error) {
	if _, err := s.findBand(ctx, in.BandID); err != nil {
		return nil, err
	}
	musician := &Musician{Name: in.Name, BandID: in.BandID}
	if err := s.db.WithContext(ctx).Create(musician).Error; err != nil {
		return nil, database.FromDatabase(err, "musician")
	}
	s.log.Debug("Musician created", logger.EntityFields("musician", musician.ID))
	return musician, nil
}

// ListMusicians returns a page of musicians. A band_id filter matches
// musicians whose primary band it is and members of it.
func (s *Service) ListMusicians(ctx context.Context, p query.Params) ([]Musician, error) {
	db := s.db.WithContext(ctx).Model(&Musician{})
	if f, ok := p.Filter("band_id"); ok {
		ids, err := keys("band_id", append([]string{f.Value}, f.Values...))
		if err != nil {
			return nil, err
		}
		members := s.db.WithContext(ctx).Model(&Membership{}).Select("musician_id").Where("band_id IN ?", ids)
		db = db.Where("musicians.band_id IN ? OR musicians.id IN (?)", ids, members)
		p.Filters = nil
	}
	musicians, err := query.Find[Musician](db, p, MusiciansQuery)
	if err != nil {
		return nil, database.FromDatabase(err, "musician")
	}
	return musicians, nil
}

// GetMusician returns a musician with their memberships and bands.
func (s *Service) GetMusician(ctx context.Context, id uint) (*Musician, error) {
	var m Musician
	err := s.db.WithContext(ctx).
		Preload("Band").
		Preload("Memberships", func(db *gorm.DB) *gorm.DB { return db.Order("band_memberships.id") }).
		Preload("Memberships.Band").
		First(&m, id).Error
	if err != nil {
		return nil, notFound(err, "musician", id)
	}
	return &m, nil
}

func (s *Service) UpdateMusician(ctx context.Context, id uint, in UpdateMusicianRequest) (*Musician, error) {
	m, err := s.findMusician(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.BandID != nil {
		if _, err := s.findBand(ctx, *in.BandID); err != nil {
			return nil, err
		}
	}
	if changes := in.changes(); len(changes) > 0 {
		if err := s.db.WithContext(ctx).Model(m).Updates(changes).Error; err != nil {
			return nil, database.FromDatabase(err, "musician")
		}
	}
	return s.findMusician(ctx, id)
}

// DeleteMusician removes a musician and their memberships.
func (s *Service) DeleteMusician(ctx context.Context, id uint) error {
	return database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		var m Musician
		if err := tx.First(&m, id).Error; err != nil {
			return notFound(err, "musician", id)
		}
		if err := tx.Where("musician_id = ?", id).Delete(&Membership{}).Error; err != nil {
			return database.FromDatabase(err, "membership")
		}
		if err := tx.Delete(&m).Error; err != nil {
			return database.FromDatabase(err, "musician")
		}
		return nil
	})
}

// CreateMembership adds a musician to a band. Both must exist.
func (s *Service) CreateMembership(ctx context.Context, in CreateMembershipRequest) (*Membership, error) {
	if _, err := s.findBand(ctx, in.BandID); err != nil {
		return nil, err
	}
	if _, err := s.findMusician(ctx, in.MusicianID); err != nil {
		return nil, err
	}
	ms := &Membership{BandID: in.BandID, MusicianID: in.MusicianID, Instrument: in.Instrument}
	if err := s.db.WithContext(ctx).Create(ms).Error; err != nil {
		return nil, database.FromDatabase(err, "membership")
	}
	return ms, nil
}

func (s *Service) findBand(ctx context.Context, id uint) (*Band, error) {
	return s.findBandTx(s.db.WithContext(ctx), id)
}

func (s *Service) findBandTx(db *gorm.DB, id uint) (*Band, error) {
	var band Band
	if err := db.First(&band, id).Error; err != nil {
		return nil, notFound(err, "band", id)
	}
	return &band, nil
}

func (s *Service) findMusician(ctx context.Context, id uint) (*Musician, error) {
	var m Musician
	if err := s.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, notFound(err, "musician", id)
	}
	return &m, nil
}

func notFound(err error, resource string, id uint) error {
	if database.IsNotFoundError(err) {
		return apperrors.NotFound(resource, strconv.FormatUint(uint64(id), 10)).WithCause(err)
	}
	return database.FromDatabase(err, resource)
}

// keys parses the non-empty values as positive integer keys.
func keys(field string, values []string) ([]uint, error) {
	var out []uint
	for _, v := range values {
		if v == "" {
			continue
		}
		id, err := validation.ParseID(field, v)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}
