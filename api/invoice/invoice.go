package invoice

import (
	"context"
	"log"
	"net/http"

	"InvoiceDesk/api/invoice/attachments"
	"InvoiceDesk/api/invoice/files"
	"InvoiceDesk/api/invoice/ingestion"
	"InvoiceDesk/api/invoice/submission"
	middlewares "InvoiceDesk/api/middlewares"
	"InvoiceDesk/internal/objectstore"
	"InvoiceDesk/internal/opstate"
	"InvoiceDesk/internal/recordstore"
	"InvoiceDesk/internal/resource"

	"github.com/jackc/pgx/v5/pgxpool"
)

// StartInvoiceService wires the record stores, object storage and the
// snapshot hub, then serves the workspace endpoints. A nil pool means no
// record database is configured and everything runs in memory, which keeps
// local development working without Postgres.
func StartInvoiceService(pool *pgxpool.Pool) {
	ctx := context.Background()

	var stores recordstore.Stores
	if pool != nil {
		pg := recordstore.NewPGStores(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Fatalf("Invoice Service schema setup failed: %v", err)
		}
		stores = pg.Stores()
		log.Println("[INFO] Invoice Service: record stores on Postgres")
	} else {
		stores = recordstore.NewMemStores().Stores()
		log.Println("[INFO] Invoice Service: no record database configured, using in-memory stores")
	}

	var objects objectstore.Storage
	if objectstore.IsS3Enabled() {
		s3Store, err := objectstore.NewS3Store(ctx)
		if err != nil {
			log.Fatalf("Invoice Service S3 setup failed: %v", err)
		}
		objects = s3Store
		log.Println("[INFO] Invoice Service: object storage on S3")
	} else {
		objects = objectstore.NewMemStore()
		log.Println("[INFO] Invoice Service: S3 disabled, storing objects in memory")
	}

	hub := recordstore.NewHub(stores)
	hub.Start()
	recordstore.SetGlobalHub(hub)

	cache := files.NewCache(objects)
	coordinator := files.NewCoordinator(stores, objects, cache, hub)
	transaction := submission.NewTransaction(stores, cache, hub)
	manager := attachments.NewManager(stores, objects, hub)
	ops := opstate.NewRegistry()

	resource.Register("invoice.stores", stores)
	resource.Register("invoice.objects", objects)
	resource.Register("invoice.hub", hub)

	session := middlewares.SessionMiddleware()

	mux := http.NewServeMux()
	mux.HandleFunc("/invoice/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Invoice Service is active"))
	})
	mux.Handle("/invoice/upload", session(ingestion.UploadHandler(ingestion.UploadDeps{
		Stores:   stores,
		Objects:  objects,
		Notifier: hub,
	})))
	mux.Handle("/invoice/files", session(files.ListFilesHandler(cache)))
	mux.Handle("/invoice/files/delete", session(files.DeleteFileHandler(coordinator, ops)))
	mux.Handle("/invoice/submit", session(submission.SubmitHandler(transaction, stores, ops)))
	mux.Handle("/invoice/pdf/attach", session(attachments.AttachHandler(manager)))
	mux.Handle("/invoice/pdf/detach", session(attachments.DetachHandler(manager)))
	mux.Handle("/invoice/pdf/view-url", session(attachments.ViewURLHandler(manager)))

	log.Println("Invoice Service started on :6143")
	if err := http.ListenAndServe(":6143", mux); err != nil {
		log.Fatalf("Invoice Service failed: %v", err)
	}
}
