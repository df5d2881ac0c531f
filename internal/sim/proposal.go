// Proposals: the closed set of actions a character can put forward in
// one turn. Model output is coerced into this set; resolution never
// sees a free-form action tag.
package sim

import (
	"fmt"

	"github.com/talgya/tiny-town/internal/llm"
)

// ProposalKind enumerates every action the resolver understands.
type ProposalKind uint8

const (
	KindTalkToSelf ProposalKind = iota // also the coercion target for anything unrecognized
	KindIdle
	KindStartConversation
	KindContinueConversation
	KindLeaveConversation
	KindListen
	KindSendMessage
	KindMove
)

func (k ProposalKind) String() string {
	switch k {
	case KindTalkToSelf:
		return "talkToSelf"
	case KindIdle:
		return "idle"
	case KindStartConversation:
		return "startConversation"
	case KindContinueConversation:
		return "continueConversation"
	case KindLeaveConversation:
		return "leaveConversation"
	case KindListen:
		return "listen"
	case KindSendMessage:
		return "sendMessage"
	case KindMove:
		return "move"
	}
	return "unknown"
}

// Proposal is one character's intended action for the current turn.
type Proposal struct {
	CharacterID string
	Kind        ProposalKind

	Message     string   // utterance, thought, or message body
	Targets     []string // startConversation: target names
	NextSpeaker string   // continueConversation: name to hand the turn to
	Recipient   string   // sendMessage: recipient name
	Location    string   // move: destination
}

// coerceProposal maps a parsed model response onto the closed proposal
// set. Unknown action tags degrade to talkToSelf so a creative model
// never produces an unresolvable action.
func coerceProposal(charID string, resp *llm.ActionResponse) Proposal {
	p := Proposal{CharacterID: charID, Message: resp.Message}

	switch resp.Action {
	case "startConversation":
		p.Kind = KindStartConversation
		p.Targets = resp.Targets
	case "continueConversation":
		p.Kind = KindContinueConversation
		p.NextSpeaker = resp.NextSpeaker
	case "leaveConversation":
		p.Kind = KindLeaveConversation
	case "listenToConversation", "listen":
		p.Kind = KindListen
	case "sendMessage":
		p.Kind = KindSendMessage
		p.Recipient = resp.Recipient
	case "move":
		p.Kind = KindMove
		p.Location = resp.Location
	case "talkToSelf":
		p.Kind = KindTalkToSelf
	default:
		p.Kind = KindTalkToSelf
		if p.Message == "" {
			p.Message = fmt.Sprintf("(mutters something about %q)", resp.Action)
		}
	}
	return p
}

// fallbackProposal is the uniform degradation for any reasoning
// failure: the character talks to themselves with a diagnostic thought.
// Resolution always receives something actionable.
func fallbackProposal(charID string, cause error) Proposal {
	return Proposal{
		CharacterID: charID,
		Kind:        KindTalkToSelf,
		Message:     fmt.Sprintf("(lost in thought: %v)", cause),
	}
}
