package notifier

import (
	"fmt"
	"strings"
	"time"

	"SavingsDAO/internal/dao"
	"SavingsDAO/internal/model"
)

// Units tells the formatter how to print each asset.
type Units struct {
	StableSymbol   string
	StableDecimals uint8
	RewardSymbol   string
	RewardDecimals uint8
}

func (u Units) stable(a model.Amount) string {
	return FormatAmount(a, u.StableDecimals) + " " + u.StableSymbol
}

func (u Units) reward(a model.Amount) string {
	return FormatAmount(a, u.RewardDecimals) + " " + u.RewardSymbol
}

// FormatAmount prints a base-unit amount with the given decimals,
// trimming trailing fractional zeros: 3000500000 at 6 decimals is "3000.5".
func FormatAmount(a model.Amount, decimals uint8) string {
	s := a.String()
	d := int(decimals)
	if d == 0 {
		return s
	}
	if len(s) <= d {
		s = strings.Repeat("0", d-len(s)+1) + s
	}
	whole, frac := s[:len(s)-d], strings.TrimRight(s[len(s)-d:], "0")
	if frac == "" {
		return whole
	}
	return whole + "." + frac
}

// FormatEvent renders the events worth a chat message. ok is false for
// routine events such as deposits and votes.
func FormatEvent(evt model.Event, u Units) (text string, ok bool) {
	switch evt.Type {
	case model.EventProposalCreated:
		return fmt.Sprintf("🗳 <b>New %s proposal #%d</b>\nProposer: %s\nQuorum: %d",
			evt.Note, evt.ProposalID, evt.User, evt.Weight), true
	case model.EventProposalAccepted:
		msg := fmt.Sprintf("✅ <b>Proposal #%d accepted</b> (%s)\nProposer: %s\nFor: %d",
			evt.ProposalID, evt.Note, evt.User, evt.Weight)
		if evt.Note == model.ProposalActivity.String() {
			msg += "\nWithdrawable: " + u.stable(evt.Amount)
		}
		return msg, true
	case model.EventProposalExpired:
		return fmt.Sprintf("⌛ Proposal #%d (%s) expired with %d for", evt.ProposalID, evt.Note, evt.Weight), true
	case model.EventMembershipGranted:
		return fmt.Sprintf("🎖 <b>%s joined the DAO</b>\nWeight: %d\n%s", evt.User, evt.Weight, evt.Note), true
	case model.EventMembershipForfeited:
		return fmt.Sprintf("👋 %s left the DAO (weight %d)", evt.User, evt.Weight), true
	case model.EventOwnerWithdraw:
		return fmt.Sprintf("💸 <b>Treasury draw</b> for proposal #%d: %s", evt.ProposalID, u.stable(evt.Amount)), true
	case model.EventOwnerRefund:
		return fmt.Sprintf("↩️ Refund for proposal #%d: %s", evt.ProposalID, u.stable(evt.Amount)), true
	case model.EventOwnershipTransferred:
		return fmt.Sprintf("🔑 Ownership transferred to %s (%s)", evt.User, evt.Note), true
	case model.EventRewardsFunded:
		return fmt.Sprintf("🎁 Reward pool funded with %s", u.reward(evt.Amount)), true
	default:
		return "", false
	}
}

// FormatSummary renders the pool status, used by /pool and the weekly report.
func FormatSummary(sum dao.Summary, u Units) string {
	var b strings.Builder
	b.WriteString("📦 <b>Savings pool</b>\n\n")
	b.WriteString(fmt.Sprintf("Stable: %s\n", u.stable(sum.Pool.Stable)))
	b.WriteString(fmt.Sprintf("Reward: %s (unallocated %s)\n", u.reward(sum.Pool.Reward), u.reward(sum.Unallocated)))
	b.WriteString(fmt.Sprintf("Withdrawable above reserve: %s\n", u.stable(sum.Headroom)))
	b.WriteString(fmt.Sprintf("Members: %d\n", sum.Members))
	b.WriteString(fmt.Sprintf("Open proposals: %d\n", sum.OpenProposals))
	b.WriteString(fmt.Sprintf("Updated: %s\n", sum.At.UTC().Format("2006-01-02 15:04")))
	return b.String()
}

// FormatVotingPower renders the quorum view for /power.
func FormatVotingPower(sum dao.Summary) string {
	var b strings.Builder
	b.WriteString("⚖️ <b>Voting power</b>\n\n")
	b.WriteString(fmt.Sprintf("Total member weight: %d\n", sum.VotingPower))
	b.WriteString(fmt.Sprintf("Quorum for a new proposal: %d\n", sum.RequiredWeight))
	if sum.CurrentProposer != "" {
		b.WriteString(fmt.Sprintf("Last accepted proposer: %s\n", sum.CurrentProposer))
	}
	return b.String()
}

// FormatProposals lists open proposals, newest first.
func FormatProposals(proposals []model.Proposal, now time.Time) string {
	var open []model.Proposal
	for _, p := range proposals {
		if p.State == model.ProposalOpen {
			open = append(open, p)
		}
	}
	if len(open) == 0 {
		return "No open proposals."
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🗳 <b>%d open proposal(s)</b>\n", len(open)))
	for i := len(open) - 1; i >= 0; i-- {
		p := open[i]
		left := p.EndTime.Sub(now).Truncate(time.Minute)
		b.WriteString(fmt.Sprintf("\n#%d %s: %s\n  %d/%d for, %s left\n",
			p.ID, p.Kind, p.Description, p.ForWeight, p.RequiredWeight, left))
	}
	return b.String()
}

// FormatWeeklyReport is the scheduled treasury digest.
func FormatWeeklyReport(sum dao.Summary, proposals []model.Proposal, u Units) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 <b>Weekly treasury report</b> | %s\n\n", sum.At.UTC().Format("2006-01-02")))
	b.WriteString(FormatSummary(sum, u))
	b.WriteString("\n")
	b.WriteString(FormatVotingPower(sum))
	b.WriteString("\n")
	b.WriteString(FormatProposals(proposals, sum.At))
	b.WriteString(fmt.Sprintf("\n\nState digest: <code>%s</code>", sum.Digest))
	return b.String()
}
