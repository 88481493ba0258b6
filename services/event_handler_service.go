package services

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"tasknotes/tasknotes/broker"
	"tasknotes/tasknotes/database"
	"tasknotes/tasknotes/models"
)

type EventHandlerServiceInterface interface {
	Start()
	Stop()
	ProcessPendingEvents() int
}

// EventHandlerService drains the outbox: every tick it publishes pending
// events in creation order and marks them dispatched.
type EventHandlerService struct {
	db        *database.Database
	producer  broker.Producer
	interval  time.Duration
	batchSize int

	mu        sync.Mutex
	isRunning bool
	stop      chan struct{}
	done      chan struct{}
}

func NewEventHandlerService(db *database.Database, producer broker.Producer) *EventHandlerService {
	return &EventHandlerService{
		db:        db,
		producer:  producer,
		interval:  1 * time.Second,
		batchSize: 100,
	}
}

func (s *EventHandlerService) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return
	}
	s.isRunning = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.run(s.stop, s.done)
}

// Stop halts the loop and waits for the batch in flight.
func (s *EventHandlerService) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	close(s.stop)
	done := s.done
	s.mu.Unlock()
	<-done
}

func (s *EventHandlerService) run(stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.ProcessPendingEvents()
		}
	}
}

// ProcessPendingEvents publishes one batch and returns how many events were
// dispatched. Events that fail to publish stay pending.
func (s *EventHandlerService) ProcessPendingEvents() int {
	if s.db == nil || s.producer == nil {
		return 0
	}

	var events []models.Event
	if err := s.db.DB.Where("dispatched = ?", false).
		Order("timestamp ASC").
		Limit(s.batchSize).
		Find(&events).Error; err != nil {
		log.Printf("Error fetching events: %v", err)
		return 0
	}

	if len(events) > 0 {
		log.Printf("Found %d pending events to process", len(events))
	}

	dispatched := 0
	for _, event := range events {
		if err := s.dispatchEvent(event); err != nil {
			log.Printf("Error dispatching event %s: %v", event.ID, err)
			continue
		}
		dispatched++
	}
	return dispatched
}

func (s *EventHandlerService) dispatchEvent(event models.Event) error {
	var data map[string]interface{}
	if err := json.Unmarshal(event.Data, &data); err != nil {
		log.Printf("Warning: Could not unmarshal event data: %v", err)
		data = make(map[string]interface{})
	}

	msg := models.NewStandardMessage(models.EventMessage, event.Event, map[string]interface{}{
		"event_id":  event.ID.String(),
		"entity":    event.Entity,
		"operation": event.Operation,
		"timestamp": event.Timestamp,
		"data":      data,
	}).ForUser(event.ActorID)

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	if err := s.producer.Publish(broker.SubjectForEntity(event.Entity), body); err != nil {
		return err
	}

	return s.db.DB.Model(&event).Updates(map[string]interface{}{
		"dispatched":    true,
		"dispatched_at": time.Now().UTC(),
		"status":        "completed",
	}).Error
}

var EventHandlerServiceInstance EventHandlerServiceInterface
