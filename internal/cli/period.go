package cli

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"teachdash/internal/api"
)

// periodFlags is a --month/--year pair; zero values mean the current month.
type periodFlags struct {
	month, year int
}

func (f *periodFlags) register(fs *pflag.FlagSet, noun string) {
	fs.IntVar(&f.month, "month", 0, noun+" month 1-12 (default current)")
	fs.IntVar(&f.year, "year", 0, noun+" year (default current)")
}

func (f periodFlags) resolve(now time.Time) (api.Period, error) {
	p := api.Period{Year: now.Year(), Month: int(now.Month())}
	if f.month != 0 {
		p.Month = f.month
	}
	if f.year != 0 {
		p.Year = f.year
	}
	if !p.Valid() {
		return api.Period{}, fmt.Errorf("invalid period %s", p)
	}
	return p, nil
}
