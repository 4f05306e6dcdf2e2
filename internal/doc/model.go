// Package doc describes the architecture of the whole system using the C4
// model. Render it with "mdl serve github.com/taskcalendar/calendar-api/internal/doc".
package doc

import . "goa.design/model/dsl"

var _ = Design("Calendar API", "Personal task calendar built around dated notes", func() {
	var System = SoftwareSystem("Calendar API", "Records notes on dates and classifies each date as a working or non-working day", func() {
		URL("https://github.com/taskcalendar/calendar-api")

		Container("REST Server", "Serves the task calendar over JSON HTTP", "Go", func() {
			Uses("IsDayOff", "Classifies dates as working or non-working days", "HTTP", Synchronous)
			Uses("PostgreSQL", "Reads from and writes to", "pgx", Synchronous)
			Uses("Memcached", "Caches tasks by date", "TCP", Synchronous)
			Uses("Kafka", "Publishes task events", "confluent-kafka-go", Asynchronous)
			Uses("RabbitMQ", "Publishes task events", "amqp", Asynchronous)
			Tag("binary")
		})

		Container("ElasticSearch Indexer", "Projects task events into the search index", "Go", func() {
			Uses("Kafka", "Consumes task events", "confluent-kafka-go", Asynchronous)
			Uses("RabbitMQ", "Consumes task events", "amqp", Asynchronous)
			Uses("ElasticSearch", "Indexes and deletes tasks", "go-elasticsearch", Synchronous)
			Tag("binary")
		})

		Container("PostgreSQL", "Stores the tasks table", "PostgreSQL 14", func() {
			Tag("database")
		})

		Container("Memcached", "Read-through cache for tasks by date", "Memcached", func() {
			Tag("database")
		})

		Container("ElasticSearch", "Full text search over task text", "ElasticSearch 7", func() {
			Tag("database")
		})

		Container("Kafka", "Task event stream", "Kafka", func() {
			Tag("broker")
		})

		Container("RabbitMQ", "Task event stream", "RabbitMQ", func() {
			Tag("broker")
		})
	})

	SoftwareSystem("IsDayOff", "Public holiday classification service", func() {
		URL("https://isdayoff.ru")
		External()
	})

	Person("User", "Keeps a personal calendar of dated notes", func() {
		Uses(System, "Creates, lists, deletes and searches notes", "HTTP/JSON", Synchronous)
		Tag("person")
	})

	Views(func() {
		SystemContextView(System, "Context", "System context of the calendar API", func() {
			AddAll()
			AutoLayout(RankTopBottom)
		})

		ContainerView(System, "Containers", "Binaries and backing services", func() {
			AddAll()
			AutoLayout(RankTopBottom)
		})

		Styles(func() {
			ElementStyle("person", func() {
				Shape(ShapePerson)
			})
			ElementStyle("database", func() {
				Shape(ShapeCylinder)
			})
		})
	})
})
