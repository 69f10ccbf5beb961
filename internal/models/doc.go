// Package models defines the domain types of the savedl batch downloader and its persistence interfaces.
//
// The package contains three categories of types:
//
// 1. Batch values: immutable inputs and results passed between the engine and its collaborators
//   - [WorkItem] : one URL submitted to a batch, identified by its position
//   - [BatchConfig] : output directory, audio format, concurrency and tool dialect for one batch
//   - [Outcome] : the terminal classification of one work item
//   - [Progress] : counters snapshotted after every recorded outcome
//
// 2. Data Transfer Objects (DTOs): lightweight structs representing external service data
//   - [Track] : a saved track from the user's Spotify library
//   - [Profile] : the authenticated Spotify account
//
// 3. Persistent Entities: database-backed models
//   - [BatchRecord] : a finished or running batch with its per-item outcomes
//
// Persistent entities implement the Model interface providing IDs, timestamps, validation and soft delete support.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
