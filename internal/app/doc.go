// Package app composes the mealdesk services into a running application.
//
// # Package Structure
//
//	internal/app/
//	├── application.go      # Application struct, wiring, and lifecycle
//	├── domain/             # Domain models (pure data structures)
//	│   ├── user/           # Accounts and the admin flag
//	│   ├── canteen/        # Canteens
//	│   ├── meal/           # Menu items with minor-unit prices
//	│   ├── order/          # Orders, snapshots and the daily summary
//	│   └── setting/        # Key/value configuration entries
//	├── storage/            # Storage interfaces and implementations
//	│   ├── interfaces.go   # Store interfaces (UserStore, OrderStore, ...)
//	│   ├── memory/         # In-memory implementation for testing
//	│   └── postgres/       # PostgreSQL implementation for production
//	├── services/           # Business logic (identity, catalog, orders, settings)
//	├── httpapi/            # HTTP handlers and routing
//	├── system/             # Lifecycle management
//	├── runtime/            # Process wiring (config, database, HTTP server)
//	└── metrics/            # Prometheus collectors
//
// The app package wires services to stores and manages their lifecycle; the
// business rules themselves live in internal/app/services. Domain models
// carry no behavior beyond conversions that define their representation.
//
// When adding a new domain, create its models under domain/, extend
// storage/interfaces.go and both store implementations, add a service under
// services/, wire it in application.go and expose it in httpapi.
package app
