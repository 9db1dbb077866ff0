package domain

import "github.com/google/uuid"

type assignmentKind int

const (
	assignmentUnassigned assignmentKind = iota
	assignmentAvailableToAll
	assignmentAgent
)

// Assignment states who may work a transaction. It is a closed variant:
// unassigned (admins route it later), offered to the shared agent pool, or
// pinned to one agent. Constructing it through the three constructors makes
// the "available to all AND assigned to an agent" combination unrepresentable.
type Assignment struct {
	kind    assignmentKind
	agentID uuid.UUID
}

// Unassigned returns an assignment with no agent and no pool offer.
func Unassigned() Assignment {
	return Assignment{kind: assignmentUnassigned}
}

// AvailableToAll returns an assignment offered to every agent.
func AvailableToAll() Assignment {
	return Assignment{kind: assignmentAvailableToAll}
}

// AssignedTo returns an assignment pinned to a single agent.
func AssignedTo(agentID uuid.UUID) Assignment {
	return Assignment{kind: assignmentAgent, agentID: agentID}
}

// IsAvailableToAll reports whether the transaction sits in the shared pool.
func (a Assignment) IsAvailableToAll() bool {
	return a.kind == assignmentAvailableToAll
}

// AgentID returns the pinned agent, if any.
func (a Assignment) AgentID() (uuid.UUID, bool) {
	if a.kind != assignmentAgent {
		return uuid.Nil, false
	}
	return a.agentID, true
}

// Columns flattens the variant into the (agent_id, available_to_all) pair
// stored in the transactions table.
func (a Assignment) Columns() (agentID *uuid.UUID, availableToAll bool) {
	switch a.kind {
	case assignmentAvailableToAll:
		return nil, true
	case assignmentAgent:
		id := a.agentID
		return &id, false
	default:
		return nil, false
	}
}

// AssignmentFromColumns rebuilds the variant from stored columns. A row
// carrying both an agent and the pool flag resolves to the pinned agent;
// the pool flag is dropped so the invariant holds on the way out.
func AssignmentFromColumns(agentID *uuid.UUID, availableToAll bool) Assignment {
	if agentID != nil {
		return AssignedTo(*agentID)
	}
	if availableToAll {
		return AvailableToAll()
	}
	return Unassigned()
}
