// Package invitations implements the project invitation workflow: issuing
// single-use expiring tokens, redeeming them for membership, and staging
// email notifications in a transactional outbox for Kafka delivery.
package invitations
