package redis

const (
	// saveLedgerScript atomically replaces a user's ledger and indexes it under its run
	saveLedgerScript = `
local ledger_key = KEYS[1]     -- {prefix}:ledger:{runID}:{user}
local index_key = KEYS[2]      -- {prefix}:run:{runID}:users

local user = ARGV[1]
local run_id = ARGV[2]
local policy = ARGV[3]
local total = ARGV[4]
local generated_at = ARGV[5]
local ttl_seconds = tonumber(ARGV[6])

-- Replace any previous export of this ledger
redis.call('DEL', ledger_key)

redis.call('HSET', ledger_key,
  'user', user,
  'run_id', run_id,
  'policy', policy,
  'total', total,
  'generated_at', generated_at
)

-- Remaining arguments are date/amount pairs
for i = 7, #ARGV, 2 do
  redis.call('HSET', ledger_key, 'day:' .. ARGV[i], ARGV[i + 1])
end

redis.call('SADD', index_key, user)

if ttl_seconds > 0 then
  redis.call('EXPIRE', ledger_key, ttl_seconds)
  redis.call('EXPIRE', index_key, ttl_seconds)
end

return 'OK'
`

	// deleteRunScript removes every ledger of a run and its index, returning the ledger count
	deleteRunScript = `
local index_key = KEYS[1]      -- {prefix}:run:{runID}:users
local ledger_prefix = ARGV[1]  -- {prefix}:ledger:{runID}:

local users = redis.call('SMEMBERS', index_key)
local deleted = 0

for _, user in ipairs(users) do
  deleted = deleted + redis.call('DEL', ledger_prefix .. user)
end

redis.call('DEL', index_key)

return deleted
`
)
