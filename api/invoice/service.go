package invoice

import (
	"InvoiceDesk/internal/recordstore"
	"InvoiceDesk/internal/serviceiface"

	"github.com/jackc/pgx/v5/pgxpool"
)

type InvoiceService struct {
	config map[string]interface{}
	pool   *pgxpool.Pool
}

func NewInvoiceService(cfg map[string]interface{}, pool *pgxpool.Pool) serviceiface.Service {
	return &InvoiceService{config: cfg, pool: pool}
}

func (s *InvoiceService) Name() string {
	return "invoice"
}

func (s *InvoiceService) Start() error {
	go StartInvoiceService(s.pool)
	return nil
}

func (s *InvoiceService) Stop() error {
	if hub := recordstore.GlobalHub(); hub != nil {
		hub.Stop()
	}
	return nil
}
