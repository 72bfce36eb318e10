package bot

import "context"

// MembershipChecker is the single transport capability the gate needs.
type MembershipChecker interface {
	IsChatMember(ctx context.Context, channel string, userID int64) (bool, error)
}

// ChannelGate requires membership of every configured channel. An empty
// channel list admits everyone; configured admins bypass the check.
type ChannelGate struct {
	Channels []string
	Admins   []int64
	Checker  MembershipChecker
}

func (g *ChannelGate) IsMember(ctx context.Context, userID int64) (bool, error) {
	for _, admin := range g.Admins {
		if admin == userID {
			return true, nil
		}
	}
	for _, channel := range g.Channels {
		member, err := g.Checker.IsChatMember(ctx, channel, userID)
		if err != nil {
			// Unresolvable membership is treated as not joined, matching
			// the transport's behavior for users who never met the bot.
			return false, nil
		}
		if !member {
			return false, nil
		}
	}
	return true, nil
}
